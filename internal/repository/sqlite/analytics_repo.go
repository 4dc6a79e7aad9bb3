package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// analyticsRepository implements repository.AnalyticsRepository for SQLite.
type analyticsRepository struct {
	db *DB
}

// NewAnalyticsRepository creates a new SQLite analytics repository.
func NewAnalyticsRepository(db *DB) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// Increment adds one view to the domain's counter and returns the new total.
func (r *analyticsRepository) Increment(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO site_views (domain, views) VALUES (?, 1)
		ON CONFLICT(domain) DO UPDATE SET views = views + 1
		RETURNING views
	`

	var views int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&views); err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrSiteNotFound
		}
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}
	return views, nil
}

// Get returns the domain's view count, or 0 if it has never been viewed.
func (r *analyticsRepository) Get(ctx context.Context, name string) (int64, error) {
	var views int64
	err := r.db.QueryRowContext(ctx, `SELECT views FROM site_views WHERE domain = ?`, name).Scan(&views)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get views: %w", err)
	}
	return views, nil
}

// GetMany returns view counts for several domains.
func (r *analyticsRepository) GetMany(ctx context.Context, domains []string) (map[string]int64, error) {
	result := make(map[string]int64, len(domains))
	if len(domains) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(domains)), ",")
	args := make([]any, len(domains))
	for i, d := range domains {
		args[i] = d
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT domain, views FROM site_views WHERE domain IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get views: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		var views int64
		if err := rows.Scan(&d, &views); err != nil {
			return nil, fmt.Errorf("failed to scan views: %w", err)
		}
		result[d] = views
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating views: %w", err)
	}
	return result, nil
}

// Ensure analyticsRepository implements repository.AnalyticsRepository.
var _ repository.AnalyticsRepository = (*analyticsRepository)(nil)
