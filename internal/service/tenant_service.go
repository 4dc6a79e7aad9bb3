// Package service provides business logic services for PawNetwork.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
	"github.com/justdev-chris/PawNetwork/internal/repository"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TenantConfig contains tenant registry configuration.
type TenantConfig struct {
	// Rules decide which domains can be claimed.
	Rules domain.TenantRules

	// Lock controls waiting for the registry and per-site locks.
	Lock lock.Options

	// MaxSiteBytes bounds the unpacked size of one upload. Zero means no limit.
	MaxSiteBytes int64
}

// TenantService is the tenant registry. It owns the email to user and
// domain to site mappings and the file sets served for each site.
type TenantService struct {
	users     repository.UserRepository
	sites     repository.SiteRepository
	analytics repository.AnalyticsRepository
	files     storage.SiteFiles
	hasher    PasswordHasher
	locker    lock.Locker
	metrics   metrics.Recorder
	validate  *validator.Validate
	config    TenantConfig
	logger    zerolog.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(
	repos *repository.Repositories,
	files storage.SiteFiles,
	hasher PasswordHasher,
	locker lock.Locker,
	m metrics.Recorder,
	config TenantConfig,
	logger zerolog.Logger,
) *TenantService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &TenantService{
		users:     repos.User,
		sites:     repos.Site,
		analytics: repos.Analytics,
		files:     files,
		hasher:    hasher,
		locker:    locker,
		metrics:   m,
		validate:  validator.New(),
		config:    config,
		logger:    logger.With().Str("service", "tenant").Logger(),
	}
}

// Rules returns the tenant rules the registry enforces.
func (s *TenantService) Rules() domain.TenantRules {
	return s.config.Rules
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// RegisterUserInput contains the data needed to register a user.
type RegisterUserInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// RegisterUserOutput contains the result of registering a user.
type RegisterUserOutput struct {
	User *domain.User
}

// RegisterSiteInput contains the data needed to register a site.
type RegisterSiteInput struct {
	Domain     string `validate:"required"`
	OwnerEmail string `validate:"required"`
}

// RegisterSiteOutput contains the result of registering a site.
type RegisterSiteOutput struct {
	Site *domain.Site
}

// =============================================================================
// Registry Methods
// =============================================================================

// RegisterUser creates a user without any site.
func (s *TenantService) RegisterUser(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(input.Email, hash)
	err = s.withRegistryLock(ctx, func(ctx context.Context) error {
		exists, err := s.users.ExistsByEmail(ctx, user.Email)
		if err != nil {
			s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to check email existence")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			return domain.ErrDuplicateEmail
		}

		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrDuplicateEmail) {
				return domain.ErrDuplicateEmail
			}
			s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to create user")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", user.Email).Msg("user registered")

	return &RegisterUserOutput{User: user}, nil
}

// RegisterSite claims a domain for an existing user and allocates empty
// storage for it.
func (s *TenantService) RegisterSite(ctx context.Context, input RegisterSiteInput) (*RegisterSiteOutput, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	name, err := s.config.Rules.ValidateDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	site := domain.NewSite(name, normalizeEmail(input.OwnerEmail))
	err = s.withRegistryLock(ctx, func(ctx context.Context) error {
		if err := s.checkDomainFree(ctx, site.Domain); err != nil {
			return err
		}
		if err := s.allocate(ctx, site.SiteID); err != nil {
			return err
		}
		if err := s.createSite(ctx, site); err != nil {
			s.discard(site.SiteID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("domain", site.Domain).
		Str("owner", site.OwnerEmail).
		Str("site_id", site.SiteID.String()).
		Msg("site registered")

	return &RegisterSiteOutput{Site: site}, nil
}

// Authenticate verifies user credentials and returns the user.
func (s *TenantService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Error().Err(err).Str("email", email).Msg("failed to get user")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		// Log but don't expose whether the email exists
		s.logger.Debug().Str("email", email).Msg("user not found during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Debug().Str("email", email).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().Str("email", user.Email).Msg("user authenticated")

	return user, nil
}

// UserByToken resolves an API token to its user.
// Returns domain.ErrUnauthorized if no user carries the token.
func (s *TenantService) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	email := normalizeEmail(token)
	if email == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error().Err(err).Msg("failed to resolve token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// LookupSite finds the site registered for a domain or host name.
func (s *TenantService) LookupSite(ctx context.Context, name string) (*domain.Site, error) {
	name = domain.NormalizeHost(name)
	if name == "" {
		return nil, domain.ErrSiteNotFound
	}

	site, err := s.sites.GetByDomain(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrSiteNotFound) {
			return nil, domain.ErrSiteNotFound
		}
		s.logger.Error().Err(err).Str("domain", name).Msg("failed to look up site")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return site, nil
}

// SiteByID finds a site by its storage identifier.
func (s *TenantService) SiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	site, err := s.sites.GetBySiteID(ctx, siteID)
	if err != nil {
		if errors.Is(err, domain.ErrSiteNotFound) {
			return nil, domain.ErrSiteNotFound
		}
		s.logger.Error().Err(err).Str("site_id", siteID.String()).Msg("failed to get site")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return site, nil
}

// SitesOwnedBy returns the sites owned by email, oldest first.
func (s *TenantService) SitesOwnedBy(ctx context.Context, email string) ([]*domain.Site, error) {
	sites, err := s.sites.ListByOwner(ctx, normalizeEmail(email))
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to list sites")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return sites, nil
}

// =============================================================================
// Helpers
// =============================================================================

// withRegistryLock runs fn while holding the global registry lock, so that
// uniqueness checks and inserts form one critical section.
// A lock that stays busy yields domain.ErrSiteBusy.
func (s *TenantService) withRegistryLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.withLock(ctx, lock.Keys.Registry(), fn)
}

// withLock runs fn while holding key. The lock is extended for as long as
// fn runs; if an extension fails, the context passed to fn is cancelled and
// the call fails even when fn returns nil.
func (s *TenantService) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l := lock.NewLock(s.locker, key)
	if err := l.Acquire(ctx, s.config.Lock); err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.logger.Warn().Str("key", l.Key()).Msg("lock busy")
			return domain.ErrSiteBusy
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Error().Err(err).Str("key", l.Key()).Msg("failed to acquire lock")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	defer func() {
		// Release even if the request context is gone.
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("key", l.Key()).Msg("failed to release lock")
		}
	}()

	held, stop := l.Hold(ctx, s.config.Lock.TTL)
	err := fn(held)
	stop()

	if errors.Is(context.Cause(held), lock.ErrLost) {
		s.logger.Error().Str("key", l.Key()).Msg("lock expired while held")
		return fmt.Errorf("%w: %w", ErrInternalError, lock.ErrLost)
	}
	return err
}

// checkUnclaimed fails if the email or the domain is already registered.
func (s *TenantService) checkUnclaimed(ctx context.Context, email, name string) error {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to check email existence")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return domain.ErrDuplicateEmail
	}
	return s.checkDomainFree(ctx, name)
}

func (s *TenantService) checkDomainFree(ctx context.Context, name string) error {
	exists, err := s.sites.ExistsByDomain(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", name).Msg("failed to check domain existence")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return domain.ErrDuplicateDomain
	}
	return nil
}

func (s *TenantService) createSite(ctx context.Context, site *domain.Site) error {
	err := s.sites.Create(ctx, site)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateDomain), errors.Is(err, domain.ErrUserNotFound):
		return err
	default:
		s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to create site")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
}

func (s *TenantService) allocate(ctx context.Context, siteID uuid.UUID) error {
	if err := s.files.Allocate(ctx, siteID); err != nil {
		s.logger.Error().Err(err).Str("site_id", siteID.String()).Msg("failed to allocate site storage")
		return err
	}
	return nil
}

// discard removes storage of a site whose registration did not commit.
func (s *TenantService) discard(siteID uuid.UUID) {
	if err := s.files.Discard(context.Background(), siteID); err != nil {
		s.logger.Warn().Err(err).Str("site_id", siteID.String()).Msg("failed to discard site storage")
	}
}

func (s *TenantService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return "", fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}
	return hash, nil
}

// validateInput runs struct validation and maps the first failure to a
// service error.
func (s *TenantService) validateInput(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			if fe.Field() == "Domain" {
				return ErrMissingDomain
			}
			return ErrMissingFields
		}
	}

	switch verrs[0].Field() {
	case "Email", "OwnerEmail":
		return ErrInvalidEmail
	case "Password":
		return ErrInvalidPassword
	default:
		return fmt.Errorf("%w: %s", ErrMissingFields, verrs[0].Field())
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
