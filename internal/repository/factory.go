// Package repository defines data access interfaces for PawNetwork.
// This file contains the factory that opens a storage backend by driver name.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/config"
)

// Database is the connection behind a set of repositories.
// It satisfies handler.HealthChecker for health endpoints.
type Database interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// Version returns the highest applied migration version (0 if none).
	Version(ctx context.Context) (int, error)
}

// Backend pairs the repositories with the database they are built on.
type Backend struct {
	Driver   string
	Repos    *Repositories
	Database Database
}

// Opener opens one driver's backend.
type Opener func(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Backend, error)

// Factory creates repositories based on configuration.
type Factory struct {
	cfg     config.DatabaseConfig
	openers map[string]Opener
	logger  zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		openers: make(map[string]Opener),
		logger:  logger,
	}
}

// Register makes a driver available to Open.
func (f *Factory) Register(driver string, open Opener) {
	f.openers[driver] = open
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}

// Open opens the configured driver's backend.
func (f *Factory) Open(ctx context.Context) (*Backend, error) {
	open, ok := f.openers[f.cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q (registered: %s)", f.cfg.Driver, strings.Join(f.drivers(), ", "))
	}

	backend, err := open(ctx, f.cfg, f.logger.With().Str("driver", f.cfg.Driver).Logger())
	if err != nil {
		return nil, err
	}
	backend.Driver = f.cfg.Driver
	return backend, nil
}

func (f *Factory) drivers() []string {
	names := make([]string, 0, len(f.openers))
	for name := range f.openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
