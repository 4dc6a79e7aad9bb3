package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	token, ok, err := m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	released, err := m.Release(ctx, "k", "someone-else")
	require.NoError(t, err)
	require.False(t, released)

	released, err = m.Release(ctx, "k", token)
	require.NoError(t, err)
	require.True(t, released)

	held, err := m.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.False(t, held)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	token, ok, err := m.Acquire(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	extended, err := m.Extend(ctx, "k", token, time.Minute)
	require.NoError(t, err)
	require.False(t, extended)

	_, ok, err = m.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLock_MutualExclusion(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewLock(m, Keys.Registry())
			if !assert.NoError(t, l.Acquire(ctx, Options{TTL: time.Minute, MaxRetries: 1000, RetryDelay: time.Millisecond})) {
				return
			}
			defer func() { assert.NoError(t, l.Release(ctx)) }()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside)
}

func TestLock_NotAcquired(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	holder := NewLock(m, Keys.SiteUpdate("abc"))
	require.NoError(t, holder.Acquire(ctx, Options{TTL: time.Minute}))
	require.True(t, holder.IsHeld())

	waiter := NewLock(m, Keys.SiteUpdate("abc"))
	err := waiter.Acquire(ctx, Options{TTL: time.Minute, MaxRetries: 2, RetryDelay: time.Millisecond})
	require.ErrorIs(t, err, ErrNotAcquired)
	require.False(t, waiter.IsHeld())
	require.NoError(t, waiter.Release(ctx))

	require.NoError(t, holder.Release(ctx))
	require.NoError(t, waiter.Acquire(ctx, Options{TTL: time.Minute}))
}

func TestKeys(t *testing.T) {
	require.Equal(t, "lock:registry", Keys.Registry())
	require.Equal(t, "lock:site:abc", Keys.SiteUpdate("abc"))
	require.Equal(t, "lock:sweep", Keys.Sweep())
	require.Equal(t, "lock:sweep", NewLock(nil, Keys.Sweep()).Key())
}

func TestLock_HoldOutlivesTTL(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	const ttl = 30 * time.Millisecond
	holder := NewLock(m, Keys.SiteUpdate("abc"))
	require.NoError(t, holder.Acquire(ctx, Options{TTL: ttl}))

	held, stop := holder.Hold(ctx, ttl)
	time.Sleep(5 * ttl)

	require.NoError(t, held.Err())
	require.True(t, holder.IsHeld())
	_, ok, err := m.Acquire(ctx, holder.Key(), time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "held lock must not expire")

	stop()
	stop()
	require.ErrorIs(t, held.Err(), context.Canceled)
	require.NotErrorIs(t, context.Cause(held), ErrLost)
	require.NoError(t, holder.Release(ctx))
}

// expiringLocker refuses every extension, as if the lock had timed out.
type expiringLocker struct {
	*MemoryLocker
}

func (expiringLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return false, nil
}

func TestLock_HoldLost(t *testing.T) {
	m := NewMemoryLocker()
	defer m.Stop()
	ctx := context.Background()

	holder := NewLock(expiringLocker{m}, Keys.SiteUpdate("abc"))
	require.NoError(t, holder.Acquire(ctx, Options{TTL: 30 * time.Millisecond}))

	held, stop := holder.Hold(ctx, 30*time.Millisecond)
	defer stop()

	select {
	case <-held.Done():
	case <-time.After(time.Second):
		t.Fatal("hold context was not cancelled")
	}
	require.ErrorIs(t, context.Cause(held), ErrLost)
	require.False(t, holder.IsHeld())
}

// TestRedisLocker runs against a live server when PAWNET_TEST_REDIS_ADDR is set.
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("PAWNET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAWNET_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()

	r := NewRedisLocker(client)
	key := "lock:test:" + t.Name()
	defer client.Del(ctx, key)

	token, ok, err := r.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = r.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	extended, err := r.Extend(ctx, key, token, 2*time.Minute)
	require.NoError(t, err)
	require.True(t, extended)

	released, err := r.Release(ctx, key, "other")
	require.NoError(t, err)
	require.False(t, released)

	released, err = r.Release(ctx, key, token)
	require.NoError(t, err)
	require.True(t, released)

	held, err := r.IsHeld(ctx, key)
	require.NoError(t, err)
	require.False(t, held)
}
