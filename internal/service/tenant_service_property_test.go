package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/repository"
)

type signupAttempt struct {
	Email  int
	Domain int
}

func genAttempt() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 4), gen.IntRange(0, 4)).Map(func(v []interface{}) signupAttempt {
		return signupAttempt{Email: v[0].(int), Domain: v[1].(int)}
	})
}

// TestSignupUniquenessProperties checks that no sequence of concurrent
// signups registers an email or a domain twice.
func TestSignupUniquenessProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("signups never share an email or domain", prop.ForAll(
		func(attempts []signupAttempt) bool {
			env := newTestEnv(t)
			ctx := context.Background()

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes []*SignupOutput
				failed    bool
			)
			for _, a := range attempts {
				wg.Add(1)
				go func(a signupAttempt) {
					defer wg.Done()
					out, err := env.svc.Signup(ctx, SignupInput{
						Email:    fmt.Sprintf("user%d@b.com", a.Email),
						Password: "pw",
						Domain:   fmt.Sprintf("site%d.cats", a.Domain),
						Uploads:  indexUpload("x"),
					})

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes = append(successes, out)
					case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrDuplicateDomain):
					default:
						failed = true
					}
				}(a)
			}
			wg.Wait()

			if failed {
				return false
			}

			emails := make(map[string]bool)
			domains := make(map[string]bool)
			for _, out := range successes {
				if emails[out.User.Email] || domains[out.Site.Domain] {
					return false
				}
				emails[out.User.Email] = true
				domains[out.Site.Domain] = true
			}

			users, err := env.store.Repositories().User.List(ctx, repository.ListOptions{Limit: 100})
			if err != nil || int(users.Total) != len(successes) {
				return false
			}

			// Every registered user's domains point back at sites they own.
			for _, u := range users.Items {
				for _, d := range u.Domains {
					site, err := env.svc.LookupSite(ctx, d)
					if err != nil || site.OwnerEmail != u.Email {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, genAttempt()),
	))

	properties.TestingRun(t)
}
