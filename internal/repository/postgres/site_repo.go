package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// siteRepository implements repository.SiteRepository.
type siteRepository struct {
	db *DB
}

// NewSiteRepository creates a new PostgreSQL site repository.
func NewSiteRepository(db *DB) repository.SiteRepository {
	return &siteRepository{db: db}
}

const siteColumns = `domain, site_id, owner_email, created_at, updated_at`

// Create registers a new site for an existing user.
func (r *siteRepository) Create(ctx context.Context, site *domain.Site) error {
	return insertSite(ctx, r.db.Pool, site)
}

func insertSite(ctx context.Context, q Querier, site *domain.Site) error {
	query := `
		INSERT INTO sites (domain, site_id, owner_email, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := q.Exec(ctx, query, site.Domain, site.SiteID, site.OwnerEmail, site.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "sites_pkey"):
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDomain, site.Domain)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, site.OwnerEmail)
		}
		return fmt.Errorf("failed to create site: %w", err)
	}

	return nil
}

// GetByDomain retrieves a site by its domain.
func (r *siteRepository) GetByDomain(ctx context.Context, name string) (*domain.Site, error) {
	return r.getOne(ctx, `SELECT `+siteColumns+` FROM sites WHERE domain = $1`, name)
}

// GetBySiteID retrieves a site by its storage identifier.
func (r *siteRepository) GetBySiteID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	return r.getOne(ctx, `SELECT `+siteColumns+` FROM sites WHERE site_id = $1`, siteID)
}

func (r *siteRepository) getOne(ctx context.Context, query string, arg any) (*domain.Site, error) {
	site, err := scanSite(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListByOwner returns the sites owned by email, oldest first.
func (r *siteRepository) ListByOwner(ctx context.Context, email string) ([]*domain.Site, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE owner_email = $1 ORDER BY created_at, domain`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

// List returns all sites with pagination.
func (r *siteRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Site], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sites`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count sites: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+siteColumns+` FROM sites ORDER BY created_at, domain LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites, err := scanSites(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Site]{
		Items:  sites,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Touch updates the site's updated_at timestamp.
func (r *siteRepository) Touch(ctx context.Context, site *domain.Site) error {
	site.Touch()

	tag, err := r.db.Pool.Exec(ctx, `UPDATE sites SET updated_at = $1 WHERE domain = $2`, *site.UpdatedAt, site.Domain)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

// ExistsByDomain checks if a site with the given domain exists.
func (r *siteRepository) ExistsByDomain(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sites WHERE domain = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check domain existence: %w", err)
	}
	return exists, nil
}

func scanSite(row pgx.Row) (*domain.Site, error) {
	site := &domain.Site{}
	var updatedAt *time.Time
	if err := row.Scan(&site.Domain, &site.SiteID, &site.OwnerEmail, &site.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	site.UpdatedAt = updatedAt
	return site, nil
}

func scanSites(rows pgx.Rows) ([]*domain.Site, error) {
	sites := []*domain.Site{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}
	return sites, nil
}

// Ensure siteRepository implements repository.SiteRepository.
var _ repository.SiteRepository = (*siteRepository)(nil)
