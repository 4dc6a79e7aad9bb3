package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// siteRepository implements repository.SiteRepository for SQLite.
type siteRepository struct {
	db *DB
}

// NewSiteRepository creates a new SQLite site repository.
func NewSiteRepository(db *DB) repository.SiteRepository {
	return &siteRepository{db: db}
}

const siteColumns = `domain, site_id, owner_email, created_at, updated_at`

// Create registers a new site for an existing user.
func (r *siteRepository) Create(ctx context.Context, site *domain.Site) error {
	return insertSite(ctx, r.db, site)
}

func insertSite(ctx context.Context, q querier, site *domain.Site) error {
	query := `
		INSERT INTO sites (domain, site_id, owner_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL)
	`

	_, err := q.ExecContext(ctx, query,
		site.Domain,
		site.SiteID.String(),
		site.OwnerEmail,
		formatTime(site.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolationOn(err, "sites.domain"):
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDomain, site.Domain)
		case isUniqueViolation(err):
			return fmt.Errorf("failed to create site: site ID collision: %w", err)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, site.OwnerEmail)
		}
		return fmt.Errorf("failed to create site: %w", err)
	}

	return nil
}

// GetByDomain retrieves a site by its domain.
func (r *siteRepository) GetByDomain(ctx context.Context, name string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE domain = ?`
	return r.getOne(ctx, query, name)
}

// GetBySiteID retrieves a site by its storage identifier.
func (r *siteRepository) GetBySiteID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE site_id = ?`
	return r.getOne(ctx, query, siteID.String())
}

func (r *siteRepository) getOne(ctx context.Context, query string, arg any) (*domain.Site, error) {
	site, err := scanSite(r.db.QueryRowContext(ctx, query, arg))
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
	query := `SELECT ` + siteColumns + ` FROM sites WHERE owner_email = ? ORDER BY created_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

// List returns all sites with pagination.
func (r *siteRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Site], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count sites: %w", err)
	}

	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY created_at, rowid LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
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

	result, err := r.db.ExecContext(ctx,
		`UPDATE sites SET updated_at = ? WHERE domain = ?`,
		formatTime(*site.UpdatedAt), site.Domain)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrSiteNotFound
	}

	return nil
}

// ExistsByDomain checks if a site with the given domain exists.
func (r *siteRepository) ExistsByDomain(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites WHERE domain = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check domain existence: %w", err)
	}
	return count > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*domain.Site, error) {
	site := &domain.Site{}
	var siteID, createdAt string
	var updatedAt sql.NullString

	if err := row.Scan(&site.Domain, &siteID, &site.OwnerEmail, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(siteID)
	if err != nil {
		return nil, fmt.Errorf("invalid site_id %q: %w", siteID, err)
	}
	site.SiteID = id
	site.CreatedAt = parseTime(createdAt)
	if updatedAt.Valid {
		t := parseTime(updatedAt.String)
		site.UpdatedAt = &t
	}

	return site, nil
}

func scanSites(rows *sql.Rows) ([]*domain.Site, error) {
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
