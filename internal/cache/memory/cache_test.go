package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/repository"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(0)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	// Returned slices are copies.
	got[0] = 'x'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), again)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(0)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	c.cleanup()
	require.Equal(t, 0, c.Len())
}

func TestCache_DeleteMulti(t *testing.T) {
	c := NewCache(0)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	require.NoError(t, c.DeleteMulti(ctx, "a", "b"))
	require.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "c"))
	_, err := c.Get(ctx, "c")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := NewCache(time.Hour)
	c.Stop()
	c.Stop()
}
