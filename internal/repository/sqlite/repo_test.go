package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, DefaultConfig(filepath.Join(t.TempDir(), "pawnet.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))

	version, err := db.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestUserRepository_CreateWithSite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	sites := NewSiteRepository(db)

	user := domain.NewUser("a@b.com", "hash")
	site := domain.NewSite("cat.cats", user.Email)
	require.NoError(t, users.CreateWithSite(ctx, user, site))
	require.Equal(t, []string{"cat.cats"}, user.Domains)

	got, err := users.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "hash", got.PasswordHash)
	require.Equal(t, []string{"cat.cats"}, got.Domains)

	stored, err := sites.GetByDomain(ctx, "cat.cats")
	require.NoError(t, err)
	require.Equal(t, site.SiteID, stored.SiteID)
	require.Equal(t, "a@b.com", stored.OwnerEmail)
	require.Nil(t, stored.UpdatedAt)

	byID, err := sites.GetBySiteID(ctx, site.SiteID)
	require.NoError(t, err)
	require.Equal(t, "cat.cats", byID.Domain)
}

func TestUserRepository_CreateWithSite_RollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	first := domain.NewUser("a@b.com", "hash")
	require.NoError(t, users.CreateWithSite(ctx, first, domain.NewSite("cat.cats", first.Email)))

	t.Run("duplicate email", func(t *testing.T) {
		dup := domain.NewUser("a@b.com", "other")
		err := users.CreateWithSite(ctx, dup, domain.NewSite("dog.cats", dup.Email))
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)

		exists, err := NewSiteRepository(db).ExistsByDomain(ctx, "dog.cats")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("duplicate domain", func(t *testing.T) {
		other := domain.NewUser("c@d.com", "hash")
		err := users.CreateWithSite(ctx, other, domain.NewSite("cat.cats", other.Email))
		require.ErrorIs(t, err, domain.ErrDuplicateDomain)

		exists, err := users.ExistsByEmail(ctx, "c@d.com")
		require.NoError(t, err)
		require.False(t, exists)
	})
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := NewUserRepository(db).GetByEmail(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSiteRepository_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	sites := NewSiteRepository(db)

	user := domain.NewUser("a@b.com", "hash")
	require.NoError(t, users.CreateWithSite(ctx, user, domain.NewSite("one.cats", user.Email)))
	require.NoError(t, sites.Create(ctx, domain.NewSite("two.cats", user.Email)))

	err := sites.Create(ctx, domain.NewSite("three.cats", "ghost@x.com"))
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	err = sites.Create(ctx, domain.NewSite("two.cats", user.Email))
	require.ErrorIs(t, err, domain.ErrDuplicateDomain)

	owned, err := sites.ListByOwner(ctx, user.Email)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	require.Equal(t, "one.cats", owned[0].Domain)
	require.Equal(t, "two.cats", owned[1].Domain)

	page, err := sites.List(ctx, repository.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)

	got, err := users.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, []string{"one.cats", "two.cats"}, got.Domains)
}

func TestSiteRepository_Touch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sites := NewSiteRepository(db)

	user := domain.NewUser("a@b.com", "hash")
	site := domain.NewSite("cat.cats", user.Email)
	require.NoError(t, NewUserRepository(db).CreateWithSite(ctx, user, site))

	require.NoError(t, sites.Touch(ctx, site))

	stored, err := sites.GetByDomain(ctx, "cat.cats")
	require.NoError(t, err)
	require.NotNil(t, stored.UpdatedAt)

	missing := domain.NewSite("gone.cats", user.Email)
	require.ErrorIs(t, sites.Touch(ctx, missing), domain.ErrSiteNotFound)
}

func TestAnalyticsRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	analytics := NewAnalyticsRepository(db)

	user := domain.NewUser("a@b.com", "hash")
	require.NoError(t, NewUserRepository(db).CreateWithSite(ctx, user, domain.NewSite("cat.cats", user.Email)))

	views, err := analytics.Get(ctx, "cat.cats")
	require.NoError(t, err)
	require.Zero(t, views)

	for i := int64(1); i <= 3; i++ {
		views, err = analytics.Increment(ctx, "cat.cats")
		require.NoError(t, err)
		require.Equal(t, i, views)
	}

	counts, err := analytics.GetMany(ctx, []string{"cat.cats", "dog.cats"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"cat.cats": 3}, counts)

	_, err = analytics.Increment(ctx, "dog.cats")
	require.ErrorIs(t, err, domain.ErrSiteNotFound)
}
