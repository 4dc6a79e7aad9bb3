package memory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

func TestFactory_Open(t *testing.T) {
	ctx := context.Background()

	f := repository.NewFactory(config.DatabaseConfig{Driver: "memory"}, zerolog.Nop())
	f.Register("memory", Open)

	backend, err := f.Open(ctx)
	require.NoError(t, err)
	require.Equal(t, "memory", backend.Driver)
	require.NoError(t, backend.Database.Migrate(ctx))
	require.NoError(t, backend.Database.Ping(ctx))

	exists, err := backend.Repos.User.ExistsByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.False(t, exists)

	unknown := repository.NewFactory(config.DatabaseConfig{Driver: "mysql"}, zerolog.Nop())
	unknown.Register("memory", Open)
	_, err = unknown.Open(ctx)
	require.ErrorContains(t, err, `unsupported database driver "mysql"`)
}
