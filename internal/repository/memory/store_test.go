package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

func TestStore_CreateWithSite(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	user := domain.NewUser("a@b.com", "hash")
	site := domain.NewSite("cat.cats", user.Email)
	require.NoError(t, repos.User.CreateWithSite(ctx, user, site))

	err := repos.User.CreateWithSite(ctx, domain.NewUser("a@b.com", "x"), domain.NewSite("dog.cats", "a@b.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	err = repos.User.CreateWithSite(ctx, domain.NewUser("c@d.com", "x"), domain.NewSite("cat.cats", "c@d.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateDomain)

	exists, err := repos.User.ExistsByEmail(ctx, "c@d.com")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = repos.Site.ExistsByDomain(ctx, "dog.cats")
	require.NoError(t, err)
	require.False(t, exists)

	got, err := repos.User.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, []string{"cat.cats"}, got.Domains)
}

func TestStore_SitesAndAnalytics(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	user := domain.NewUser("a@b.com", "hash")
	first := domain.NewSite("one.cats", user.Email)
	require.NoError(t, repos.User.CreateWithSite(ctx, user, first))
	require.NoError(t, repos.Site.Create(ctx, domain.NewSite("two.cats", user.Email)))
	require.ErrorIs(t, repos.Site.Create(ctx, domain.NewSite("x.cats", "ghost@x.com")), domain.ErrUserNotFound)

	owned, err := repos.Site.ListByOwner(ctx, user.Email)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	require.Equal(t, "one.cats", owned[0].Domain)

	byID, err := repos.Site.GetBySiteID(ctx, first.SiteID)
	require.NoError(t, err)
	require.Equal(t, "one.cats", byID.Domain)

	require.NoError(t, repos.Site.Touch(ctx, first))
	stored, err := repos.Site.GetByDomain(ctx, "one.cats")
	require.NoError(t, err)
	require.NotNil(t, stored.UpdatedAt)

	views, err := repos.Analytics.Increment(ctx, "one.cats")
	require.NoError(t, err)
	require.Equal(t, int64(1), views)

	_, err = repos.Analytics.Increment(ctx, "nope.cats")
	require.ErrorIs(t, err, domain.ErrSiteNotFound)

	counts, err := repos.Analytics.GetMany(ctx, []string{"one.cats", "two.cats"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"one.cats": 1}, counts)

	page, err := repos.Site.List(ctx, repository.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, "two.cats", page.Items[0].Domain)
}
