// Package main is the entry point for the PawNetwork server.
// PawNetwork hosts static sites for tenants on claimed .cats domains.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/auth"
	"github.com/justdev-chris/PawNetwork/internal/bootstrap"
	memcache "github.com/justdev-chris/PawNetwork/internal/cache/memory"
	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/handler"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
	"github.com/justdev-chris/PawNetwork/internal/pkg/crypto"
	"github.com/justdev-chris/PawNetwork/internal/repository"
	"github.com/justdev-chris/PawNetwork/internal/service"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// cacheSweepInterval is how often expired site lookups are dropped.
const cacheSweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pawnet-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("PAWNET_CONFIG"))
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg.Logging, os.Stderr)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting PawNetwork server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	backend, err := bootstrap.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Database.Close()

	if err := backend.Database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repos := *backend.Repos
	if cfg.Cache.Enabled {
		cache := memcache.NewCache(cacheSweepInterval)
		defer cache.Stop()
		repos.Site = repository.NewCachedSiteRepository(repos.Site, cache, cfg.Cache.SiteTTL, logger)
	}

	// Site storage
	files, err := storage.NewFileStore(storage.DefaultPathConfig(cfg.Storage.DataDir), logger)
	if err != nil {
		return err
	}

	// Locks
	locker, closeLocker, err := bootstrap.NewLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to set up locks: %w", err)
	}
	defer closeLocker()

	// Metrics
	var (
		m        *metrics.Metrics
		recorder metrics.Recorder = metrics.Nop{}
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
	}

	rules := domain.TenantRules{
		Suffix:        cfg.Tenant.Suffix,
		RegisterHost:  cfg.Tenant.RegisterHost,
		DashboardHost: cfg.Tenant.DashboardHost,
	}

	svc := service.NewTenantService(
		&repos,
		files,
		crypto.NewPasswordHasher(cfg.Auth.BcryptCost),
		locker,
		recorder,
		service.TenantConfig{
			Rules: rules,
			Lock: lock.Options{
				TTL:        cfg.Lock.TTL,
				MaxRetries: cfg.Lock.MaxRetries,
				RetryDelay: cfg.Lock.RetryDelay,
			},
			MaxSiteBytes: cfg.Server.MaxBodySize,
		},
		logger,
	)

	// Orphan storage sweeper reads the uncached repository.
	if cfg.Sweeper.Enabled {
		sweeper := service.NewSweeper(backend.Repos.Site, files, locker, recorder, service.SweeperConfig{
			Interval:    cfg.Sweeper.Interval,
			GracePeriod: cfg.Sweeper.GracePeriod,
			BatchSize:   cfg.Sweeper.BatchSize,
			DryRun:      cfg.Sweeper.DryRun,
		}, logger)
		sweeper.Start()
		defer sweeper.Stop()
	}

	pages, err := handler.NewPages(rules, logger)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	router := handler.NewRouter(handler.RouterConfig{
		API:            handler.NewAPIHandler(svc, logger),
		Hosts:          handler.NewHostRouter(svc, pages, rules, recorder, logger),
		Pages:          pages,
		AuthMiddleware: auth.Middleware(svc, logger),
		Health:         backend.Database,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		CORS:           cfg.CORS,
		MaxBodySize:    cfg.Server.MaxBodySize,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
