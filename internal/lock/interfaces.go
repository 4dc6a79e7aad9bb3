// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotAcquired is returned by Lock.Acquire when every attempt found the
	// key held by someone else.
	ErrNotAcquired = errors.New("lock not acquired")

	// ErrLost is the cancellation cause of a Hold context whose lock could
	// not be extended.
	ErrLost = errors.New("lock lost")
)

// Locker defines the interface for distributed/local locking.
// Every successful acquisition yields an owner token; only the holder of
// that token can release or extend the lock.
type Locker interface {
	// Acquire attempts to acquire a lock once.
	// Returns the owner token and true if the lock was acquired, or false if
	// it is held by someone else. The lock expires after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Release releases a lock held with token.
	// Returns false if the lock had expired or belongs to another owner.
	Release(ctx context.Context, key, token string) (bool, error)

	// Extend resets the TTL of a lock held with token.
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// IsHeld checks if the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Options controls how Lock.Acquire waits for a busy key.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Lock is a convenience wrapper for a specific lock instance.
type Lock struct {
	locker Locker
	key    string
	token  string
}

// NewLock creates a new Lock instance.
func NewLock(locker Locker, key string) *Lock {
	return &Lock{
		locker: locker,
		key:    key,
	}
}

// Key returns the lock key.
func (l *Lock) Key() string {
	return l.key
}

// Acquire tries to take the lock, retrying up to opts.MaxRetries times.
// Returns ErrNotAcquired if the key stayed busy.
func (l *Lock) Acquire(ctx context.Context, opts Options) error {
	for i := 0; ; i++ {
		token, acquired, err := l.locker.Acquire(ctx, l.key, opts.TTL)
		if err != nil {
			return err
		}
		if acquired {
			l.token = token
			return nil
		}

		if i >= opts.MaxRetries {
			return ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key, l.token)
	l.token = ""
	return err
}

// Extend extends the lock TTL.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	if l.token == "" {
		return nil
	}
	extended, err := l.locker.Extend(ctx, l.key, l.token, ttl)
	if err != nil {
		return err
	}
	if !extended {
		l.token = ""
	}
	return nil
}

// Hold keeps the lock alive by extending it to ttl every ttl/3 until stop
// is called. The returned context is cancelled with cause ErrLost as soon as
// an extension fails, so work done under it can abort. stop must be called
// before Release.
func (l *Lock) Hold(ctx context.Context, ttl time.Duration) (held context.Context, stop func()) {
	held, cancel := context.WithCancelCause(ctx)

	interval := ttl / 3
	if interval <= 0 {
		return held, func() { cancel(nil) }
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-held.Done():
				return
			case <-ticker.C:
				if err := l.Extend(held, ttl); err != nil || !l.IsHeld() {
					cancel(ErrLost)
					return
				}
			}
		}
	}()

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(done)
			<-finished
			cancel(nil)
		})
	}
}

// IsHeld returns whether the lock is held by this instance.
func (l *Lock) IsHeld() bool {
	return l.token != ""
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Registry returns the lock key guarding email and domain check-then-insert.
func (lockKeys) Registry() string {
	return "lock:registry"
}

// SiteUpdate returns a lock key serialising file set replacements of one site.
func (lockKeys) SiteUpdate(siteID string) string {
	return "lock:site:" + siteID
}

// Sweep returns the lock key that keeps one storage sweep running at a time.
func (lockKeys) Sweep() string {
	return "lock:sweep"
}
