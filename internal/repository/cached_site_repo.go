package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

// cachedSiteRepository serves hot host lookups from a Cache and falls
// through to the wrapped repository on a miss. Negative lookups are not
// cached, so a freshly registered domain is visible immediately.
type cachedSiteRepository struct {
	SiteRepository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSiteRepository wraps repo with a read-through cache.
func NewCachedSiteRepository(repo SiteRepository, cache Cache, ttl time.Duration, logger zerolog.Logger) SiteRepository {
	return &cachedSiteRepository{
		SiteRepository: repo,
		cache:          cache,
		ttl:            ttl,
		logger:         logger.With().Str("component", "site_cache").Logger(),
	}
}

// GetByDomain retrieves a site by domain, consulting the cache first.
func (r *cachedSiteRepository) GetByDomain(ctx context.Context, name string) (*domain.Site, error) {
	key := CacheKeys.SiteByDomain(name)
	if site, ok := r.load(ctx, key); ok {
		return site, nil
	}

	site, err := r.SiteRepository.GetByDomain(ctx, name)
	if err != nil {
		return nil, err
	}

	r.store(ctx, site)
	return site, nil
}

// GetBySiteID retrieves a site by site ID, consulting the cache first.
func (r *cachedSiteRepository) GetBySiteID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	key := CacheKeys.SiteByID(siteID.String())
	if site, ok := r.load(ctx, key); ok {
		return site, nil
	}

	site, err := r.SiteRepository.GetBySiteID(ctx, siteID)
	if err != nil {
		return nil, err
	}

	r.store(ctx, site)
	return site, nil
}

// Touch updates the site and drops its cached entries.
func (r *cachedSiteRepository) Touch(ctx context.Context, site *domain.Site) error {
	if err := r.SiteRepository.Touch(ctx, site); err != nil {
		return err
	}

	if err := r.cache.DeleteMulti(ctx,
		CacheKeys.SiteByDomain(site.Domain),
		CacheKeys.SiteByID(site.SiteID.String()),
	); err != nil {
		r.logger.Warn().Err(err).Str("domain", site.Domain).Msg("failed to invalidate site cache")
	}
	return nil
}

func (r *cachedSiteRepository) load(ctx context.Context, key string) (*domain.Site, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var site domain.Site
	if err := json.Unmarshal(data, &site); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = r.cache.Delete(ctx, key)
		return nil, false
	}
	return &site, true
}

func (r *cachedSiteRepository) store(ctx context.Context, site *domain.Site) {
	data, err := json.Marshal(site)
	if err != nil {
		return
	}

	for _, key := range []string{CacheKeys.SiteByDomain(site.Domain), CacheKeys.SiteByID(site.SiteID.String())} {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to cache site")
		}
	}
}

// Ensure cachedSiteRepository implements SiteRepository.
var _ SiteRepository = (*cachedSiteRepository)(nil)
