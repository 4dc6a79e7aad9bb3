package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// RecordView adds one view to the site's counter and returns the new total.
func (s *TenantService) RecordView(ctx context.Context, site *domain.Site) (int64, error) {
	views, err := s.analytics.Increment(ctx, site.Domain)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to count view")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.metrics.RecordSiteView()
	return views, nil
}

// OpenFile resolves a request path against a site's live files.
// The caller must close the returned file's Content.
func (s *TenantService) OpenFile(ctx context.Context, siteID uuid.UUID, requestedPath string) (*storage.File, error) {
	f, err := s.files.ResolveFile(ctx, siteID, requestedPath)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) || errors.Is(err, domain.ErrInvalidPath) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("site_id", siteID.String()).Msg("failed to resolve file")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return f, nil
}

// SiteViews returns the view count of a domain owned by email.
func (s *TenantService) SiteViews(ctx context.Context, email, name string) (int64, error) {
	site, err := s.LookupSite(ctx, name)
	if err != nil {
		return 0, err
	}
	if !site.IsOwnedBy(normalizeEmail(email)) {
		return 0, domain.ErrForbidden
	}

	views, err := s.analytics.Get(ctx, site.Domain)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to get views")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return views, nil
}

// SiteStats returns every site owned by email with its view count,
// oldest first.
func (s *TenantService) SiteStats(ctx context.Context, email string) ([]domain.SiteStats, error) {
	sites, err := s.SitesOwnedBy(ctx, email)
	if err != nil {
		return nil, err
	}

	domains := make([]string, len(sites))
	for i, site := range sites {
		domains[i] = site.Domain
	}

	views, err := s.analytics.GetMany(ctx, domains)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to get views")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	stats := make([]domain.SiteStats, len(sites))
	for i, site := range sites {
		stats[i] = domain.SiteStats{Site: site, Views: views[site.Domain]}
	}
	return stats, nil
}
