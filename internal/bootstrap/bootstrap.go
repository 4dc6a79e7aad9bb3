// Package bootstrap builds the process-wide dependencies shared by the
// PawNetwork binaries.
package bootstrap

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/repository"
	"github.com/justdev-chris/PawNetwork/internal/repository/memory"
	"github.com/justdev-chris/PawNetwork/internal/repository/postgres"
	"github.com/justdev-chris/PawNetwork/internal/repository/sqlite"
)

// NewLogger creates the root logger. Unknown levels fall back to info.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// NewDatabaseFactory returns a factory with every database driver registered.
func NewDatabaseFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *repository.Factory {
	f := repository.NewFactory(cfg, logger)
	f.Register("sqlite", sqlite.Open)
	f.Register("postgres", postgres.Open)
	f.Register("memory", memory.Open)
	return f
}

// OpenDatabase opens the configured database backend.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Backend, error) {
	return NewDatabaseFactory(cfg, logger).Open(ctx)
}

// NewLocker returns the Redis locker when Redis is enabled and the
// in-memory locker otherwise. The returned func releases the backend.
func NewLocker(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (lock.Locker, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("using in-memory locks")
		locker := lock.NewMemoryLocker()
		return locker, locker.Stop, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("addr", cfg.Addr()).Msg("using redis locks")
	return lock.NewRedisLocker(client), func() { _ = client.Close() }, nil
}
