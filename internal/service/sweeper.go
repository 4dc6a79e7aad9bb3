package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
	"github.com/justdev-chris/PawNetwork/internal/repository"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// SiteDirectories lists and removes site storage.
type SiteDirectories interface {
	ListSites(ctx context.Context) ([]storage.SiteEntry, error)
	Discard(ctx context.Context, siteID uuid.UUID) error
}

var _ SiteDirectories = (*storage.FileStore)(nil)

// Sweeper removes site directories that no registered site points at.
// They are left behind when the process dies between writing a new site's
// files and committing its registration.
type Sweeper struct {
	sites   repository.SiteRepository
	dirs    SiteDirectories
	locker  lock.Locker
	metrics metrics.Recorder
	logger  zerolog.Logger
	config  SweeperConfig
	now     func() time.Time

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// SweeperConfig contains storage sweeper configuration.
type SweeperConfig struct {
	// Interval is how often the sweeper runs.
	Interval time.Duration

	// GracePeriod is how long an unregistered directory is left alone.
	// Signups in flight own their directory for much less than this.
	GracePeriod time.Duration

	// BatchSize is the maximum number of directories removed per run.
	// Zero means no limit.
	BatchSize int

	// DryRun logs what would be removed without removing it.
	DryRun bool
}

// DefaultSweeperConfig returns the sweeper.* defaults of the config layer.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    time.Hour,
		GracePeriod: 24 * time.Hour,
		BatchSize:   1000,
	}
}

// NewSweeper creates a new Sweeper.
func NewSweeper(
	sites repository.SiteRepository,
	dirs SiteDirectories,
	locker lock.Locker,
	m metrics.Recorder,
	config SweeperConfig,
	logger zerolog.Logger,
) *Sweeper {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Sweeper{
		sites:    sites,
		dirs:     dirs,
		locker:   locker,
		metrics:  m,
		logger:   logger.With().Str("service", "sweeper").Logger(),
		config:   config,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep scheduler.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("grace_period", s.config.GracePeriod).
		Int("batch_size", s.config.BatchSize).
		Bool("dry_run", s.config.DryRun).
		Msg("starting storage sweeper")

	go s.runLoop()
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	<-s.doneChan

	s.logger.Info().Msg("storage sweeper stopped")
}

func (s *Sweeper) runLoop() {
	defer close(s.doneChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			return
		}
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	// Scanned is the number of site directories inspected.
	Scanned int

	// Removed is the number of orphan directories removed, or that would
	// have been removed in a dry run.
	Removed int

	// Errors is the number of directories that could not be checked or removed.
	Errors int

	// Remaining reports that the batch limit stopped the sweep early.
	Remaining bool

	// Skipped reports that another sweep held the lock.
	Skipped bool

	// Duration is how long the sweep took.
	Duration time.Duration
}

// RunOnce executes a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) SweepResult {
	start := s.now()
	result := SweepResult{}

	ttl := s.config.Interval / 2
	if ttl < 5*time.Minute {
		ttl = 5 * time.Minute
	}

	l := lock.NewLock(s.locker, lock.Keys.Sweep())
	if err := l.Acquire(ctx, lock.Options{TTL: ttl}); err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.logger.Debug().Msg("sweep lock held elsewhere, skipping run")
			result.Skipped = true
		} else {
			s.logger.Error().Err(err).Msg("failed to acquire sweep lock")
			result.Errors++
		}
		result.Duration = s.now().Sub(start)
		return result
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	ctx, stop := l.Hold(ctx, ttl)
	defer stop()

	entries, err := s.dirs.ListSites(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list site directories")
		result.Errors++
		result.Duration = s.now().Sub(start)
		return result
	}

	cutoff := s.now().Add(-s.config.GracePeriod)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.ModTime.After(cutoff) {
			continue
		}
		result.Scanned++

		if s.config.BatchSize > 0 && result.Removed >= s.config.BatchSize {
			result.Remaining = true
			break
		}

		orphan, err := s.isOrphan(ctx, entry.SiteID)
		if err != nil {
			s.logger.Error().Err(err).Str("site_id", entry.SiteID.String()).Msg("failed to look up site")
			result.Errors++
			continue
		}
		if !orphan {
			continue
		}

		if s.config.DryRun {
			s.logger.Info().
				Str("site_id", entry.SiteID.String()).
				Time("mod_time", entry.ModTime).
				Msg("[DRY RUN] would remove orphan site directory")
			result.Removed++
			continue
		}

		if err := s.dirs.Discard(ctx, entry.SiteID); err != nil {
			s.logger.Error().Err(err).Str("site_id", entry.SiteID.String()).Msg("failed to remove orphan site directory")
			result.Errors++
			continue
		}

		s.logger.Debug().Str("site_id", entry.SiteID.String()).Msg("removed orphan site directory")
		result.Removed++
	}

	result.Duration = s.now().Sub(start)
	if !s.config.DryRun {
		s.metrics.RecordSweep(result.Removed)
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("removed", result.Removed).
		Int("errors", result.Errors).
		Bool("remaining", result.Remaining).
		Dur("duration", result.Duration).
		Msg("storage sweep completed")

	return result
}

func (s *Sweeper) isOrphan(ctx context.Context, siteID uuid.UUID) (bool, error) {
	_, err := s.sites.GetBySiteID(ctx, siteID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, domain.ErrSiteNotFound):
		return true, nil
	default:
		return false, err
	}
}
