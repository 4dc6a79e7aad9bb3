// Package memory provides in-memory repository implementations.
// They hold state for the lifetime of the process only and back ephemeral
// runs (database.driver=memory) and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// Store keeps users, sites and view counters behind one mutex so that
// multi-record writes are atomic.
type Store struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	sites map[string]*domain.Site
	order []string // domains in creation order
	views map[string]int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		sites: make(map[string]*domain.Site),
		views: make(map[string]int64),
	}
}

// Repositories returns repository views over the store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:      &userRepository{s: s},
		Site:      &siteRepository{s: s},
		Analytics: &analyticsRepository{s: s},
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Health always succeeds.
func (s *Store) Health(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Migrate is a no-op; the store has no schema.
func (s *Store) Migrate(ctx context.Context) error { return nil }

// Version always reports 0.
func (s *Store) Version(ctx context.Context) (int, error) { return 0, nil }

// Open returns a fresh store. It matches repository.Opener.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Backend, error) {
	logger.Warn().Msg("using in-memory database, state is lost on exit")
	s := NewStore()
	return &repository.Backend{Repos: s.Repositories(), Database: s}, nil
}

// insertSiteLocked must be called with mu held for writing.
func (s *Store) insertSiteLocked(site *domain.Site) error {
	if _, exists := s.sites[site.Domain]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateDomain, site.Domain)
	}
	if _, exists := s.users[site.OwnerEmail]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, site.OwnerEmail)
	}
	copied := *site
	s.sites[site.Domain] = &copied
	s.order = append(s.order, site.Domain)
	return nil
}

// domainsOfLocked must be called with mu held.
func (s *Store) domainsOfLocked(email string) []string {
	domains := []string{}
	for _, d := range s.order {
		if s.sites[d].OwnerEmail == email {
			domains = append(domains, d)
		}
	}
	return domains
}

func (s *Store) userCopyLocked(u *domain.User) *domain.User {
	copied := *u
	copied.Domains = s.domainsOfLocked(u.Email)
	return &copied
}

func cloneSite(site *domain.Site) *domain.Site {
	copied := *site
	if site.UpdatedAt != nil {
		t := *site.UpdatedAt
		copied.UpdatedAt = &t
	}
	return &copied
}

// =============================================================================
// Users
// =============================================================================

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Email]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
	}
	copied := *user
	copied.Domains = nil
	r.s.users[user.Email] = &copied
	return nil
}

func (r *userRepository) CreateWithSite(ctx context.Context, user *domain.User, site *domain.Site) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Email]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
	}
	if _, exists := r.s.sites[site.Domain]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateDomain, site.Domain)
	}

	copied := *user
	copied.Domains = nil
	r.s.users[user.Email] = &copied
	if err := r.s.insertSiteLocked(site); err != nil {
		delete(r.s.users, user.Email)
		return err
	}

	user.Domains = append(user.Domains, site.Domain)
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, exists := r.s.users[email]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return r.s.userCopyLocked(u), nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, exists := r.s.users[email]
	return exists, nil
}

func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, r.s.userCopyLocked(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Email < all[j].Email
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return &repository.ListResult[domain.User]{
		Items:  page(all, opts),
		Total:  int64(len(all)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// =============================================================================
// Sites
// =============================================================================

type siteRepository struct {
	s *Store
}

func (r *siteRepository) Create(ctx context.Context, site *domain.Site) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertSiteLocked(site)
}

func (r *siteRepository) GetByDomain(ctx context.Context, name string) (*domain.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	site, exists := r.s.sites[name]
	if !exists {
		return nil, domain.ErrSiteNotFound
	}
	return cloneSite(site), nil
}

func (r *siteRepository) GetBySiteID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, site := range r.s.sites {
		if site.SiteID == siteID {
			return cloneSite(site), nil
		}
	}
	return nil, domain.ErrSiteNotFound
}

func (r *siteRepository) ListByOwner(ctx context.Context, email string) ([]*domain.Site, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sites := []*domain.Site{}
	for _, d := range r.s.order {
		if site := r.s.sites[d]; site.OwnerEmail == email {
			sites = append(sites, cloneSite(site))
		}
	}
	return sites, nil
}

func (r *siteRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Site], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.Site, 0, len(r.s.order))
	for _, d := range r.s.order {
		all = append(all, cloneSite(r.s.sites[d]))
	}

	return &repository.ListResult[domain.Site]{
		Items:  page(all, opts),
		Total:  int64(len(all)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (r *siteRepository) Touch(ctx context.Context, site *domain.Site) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, exists := r.s.sites[site.Domain]
	if !exists {
		return domain.ErrSiteNotFound
	}
	site.Touch()
	t := *site.UpdatedAt
	stored.UpdatedAt = &t
	return nil
}

func (r *siteRepository) ExistsByDomain(ctx context.Context, name string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, exists := r.s.sites[name]
	return exists, nil
}

// =============================================================================
// Analytics
// =============================================================================

type analyticsRepository struct {
	s *Store
}

func (r *analyticsRepository) Increment(ctx context.Context, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.sites[name]; !exists {
		return 0, domain.ErrSiteNotFound
	}
	r.s.views[name]++
	return r.s.views[name], nil
}

func (r *analyticsRepository) Get(ctx context.Context, name string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.views[name], nil
}

func (r *analyticsRepository) GetMany(ctx context.Context, domains []string) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make(map[string]int64, len(domains))
	for _, d := range domains {
		if views, ok := r.s.views[d]; ok {
			result[d] = views
		}
	}
	return result, nil
}

func page[T any](items []*T, opts repository.ListOptions) []*T {
	if opts.Offset >= len(items) {
		return []*T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

var (
	_ repository.UserRepository      = (*userRepository)(nil)
	_ repository.SiteRepository      = (*siteRepository)(nil)
	_ repository.AnalyticsRepository = (*analyticsRepository)(nil)
	_ repository.Database            = (*Store)(nil)

	_ repository.Opener = Open
)
