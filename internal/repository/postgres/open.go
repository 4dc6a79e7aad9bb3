package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

// Open connects to the configured PostgreSQL server and builds its repositories.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Backend, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &repository.Backend{Repos: NewRepositories(db), Database: db}, nil
}

// NewRepositories builds every repository on db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:      NewUserRepository(db),
		Site:      NewSiteRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}

// Ensure DB implements repository.Database.
var _ repository.Database = (*DB)(nil)
