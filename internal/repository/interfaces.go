// Package repository defines data access interfaces for PawNetwork.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL, in-memory for testing) while keeping the service layer clean.
//
// Every mutating method is write-through: when it returns nil the change has been
// committed to the backing store.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// CreateWithSite creates a user and their first site in one transaction.
	// Returns domain.ErrDuplicateEmail or domain.ErrDuplicateDomain and
	// commits nothing if either key is taken.
	CreateWithSite(ctx context.Context, user *domain.User, site *domain.Site) error

	// GetByEmail retrieves a user by email, with Domains populated.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Site Repository
// =============================================================================

// SiteRepository defines the interface for site data access.
type SiteRepository interface {
	// Create registers a new site for an existing user.
	// Returns domain.ErrDuplicateDomain if the domain is taken and
	// domain.ErrUserNotFound if the owner does not exist.
	Create(ctx context.Context, site *domain.Site) error

	// GetByDomain retrieves a site by its domain.
	GetByDomain(ctx context.Context, domain string) (*domain.Site, error)

	// GetBySiteID retrieves a site by its storage identifier.
	GetBySiteID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error)

	// ListByOwner returns the sites owned by email, oldest first.
	ListByOwner(ctx context.Context, email string) ([]*domain.Site, error)

	// List returns all sites with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Site], error)

	// Touch updates the site's updated_at timestamp.
	Touch(ctx context.Context, site *domain.Site) error

	// ExistsByDomain checks if a site with the given domain exists.
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}

// =============================================================================
// Analytics Repository
// =============================================================================

// AnalyticsRepository stores per-domain view counters.
type AnalyticsRepository interface {
	// Increment adds one view to the domain's counter and returns the new total.
	Increment(ctx context.Context, domain string) (int64, error)

	// Get returns the domain's view count, or 0 if it has never been viewed.
	Get(ctx context.Context, domain string) (int64, error)

	// GetMany returns view counts for several domains.
	// Domains that have never been viewed are absent from the map.
	GetMany(ctx context.Context, domains []string) (map[string]int64, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListResult contains a page of items and the total count.
type ListResult[T any] struct {
	Items  []*T
	Total  int64
	Offset int
	Limit  int
}

// Repositories holds all repository instances.
type Repositories struct {
	User      UserRepository
	Site      SiteRepository
	Analytics AnalyticsRepository
}
