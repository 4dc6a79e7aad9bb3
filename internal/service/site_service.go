package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// =============================================================================
// Input/Output Structs
// =============================================================================

// SignupInput contains the data needed to sign up with a first site.
type SignupInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
	Domain   string `validate:"required"`
	Uploads  []UploadedFile
}

// SignupOutput contains the result of a signup.
type SignupOutput struct {
	User *domain.User
	Site *domain.Site
}

// AddSiteInput contains the data needed to add a site to an existing user.
type AddSiteInput struct {
	OwnerEmail string
	Domain     string `validate:"required"`
	Uploads    []UploadedFile
}

// AddSiteOutput contains the result of adding a site.
type AddSiteOutput struct {
	Site *domain.Site
}

// UpdateSiteInput contains the data needed to replace a site's files.
type UpdateSiteInput struct {
	OwnerEmail string
	Domain     string `validate:"required"`
	Uploads    []UploadedFile
}

// UpdateSiteOutput contains the result of updating a site.
type UpdateSiteOutput struct {
	Site  *domain.Site
	Files int
	Bytes int64
}

// =============================================================================
// Site Methods
// =============================================================================

// Signup registers a user together with their first site and stores the
// uploaded files. The user and site rows are committed in one transaction
// after the files are in place; if anything fails, nothing is registered
// and the site storage is discarded.
func (s *TenantService) Signup(ctx context.Context, input SignupInput) (out *SignupOutput, err error) {
	defer func() { s.metrics.RecordSignup(outcome(err)) }()

	input.Email = normalizeEmail(input.Email)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	name, err := s.config.Rules.ValidateDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	files, err := s.ingest(input.Uploads)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(input.Email, hash)
	site := domain.NewSite(name, user.Email)

	// Reject known conflicts before touching storage. The registry lock is
	// only held for the final check and commit, not for the file write.
	if err := s.checkUnclaimed(ctx, user.Email, site.Domain); err != nil {
		return nil, err
	}
	if err := s.storeNewSite(ctx, site, files); err != nil {
		return nil, err
	}

	err = s.withRegistryLock(ctx, func(ctx context.Context) error {
		if err := s.checkUnclaimed(ctx, user.Email, site.Domain); err != nil {
			return err
		}
		if err := s.users.CreateWithSite(ctx, user, site); err != nil {
			if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateDomain) {
				return err
			}
			s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to create user with site")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		return nil
	})
	if err != nil {
		s.discard(site.SiteID)
		return nil, err
	}

	user.Domains = []string{site.Domain}

	s.logger.Info().
		Str("email", user.Email).
		Str("domain", site.Domain).
		Str("site_id", site.SiteID.String()).
		Int("files", len(files)).
		Msg("user signed up")

	return &SignupOutput{User: user, Site: site}, nil
}

// AddSite registers an additional domain for an existing user and stores
// the uploaded files for it.
func (s *TenantService) AddSite(ctx context.Context, input AddSiteInput) (out *AddSiteOutput, err error) {
	var files storage.FileSet
	defer func() { s.metrics.RecordUpload("add", outcome(err), files.Size()) }()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	name, err := s.config.Rules.ValidateDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	files, err = s.ingest(input.Uploads)
	if err != nil {
		return nil, err
	}

	site := domain.NewSite(name, normalizeEmail(input.OwnerEmail))
	if err := s.checkDomainFree(ctx, site.Domain); err != nil {
		return nil, err
	}
	if err := s.storeNewSite(ctx, site, files); err != nil {
		return nil, err
	}

	err = s.withRegistryLock(ctx, func(ctx context.Context) error {
		if err := s.checkDomainFree(ctx, site.Domain); err != nil {
			return err
		}
		return s.createSite(ctx, site)
	})
	if err != nil {
		s.discard(site.SiteID)
		return nil, err
	}

	s.logger.Info().
		Str("owner", site.OwnerEmail).
		Str("domain", site.Domain).
		Str("site_id", site.SiteID.String()).
		Int("files", len(files)).
		Msg("site added")

	return &AddSiteOutput{Site: site}, nil
}

// UpdateSite replaces every file of a site owned by input.OwnerEmail.
// Updates of one site are serialised; an update that cannot get the site
// lock fails with domain.ErrSiteBusy and changes nothing.
func (s *TenantService) UpdateSite(ctx context.Context, input UpdateSiteInput) (out *UpdateSiteOutput, err error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	site, err := s.LookupSite(ctx, input.Domain)
	if err != nil {
		return nil, err
	}
	if !site.IsOwnedBy(normalizeEmail(input.OwnerEmail)) {
		return nil, domain.ErrForbidden
	}

	files, err := s.ingest(input.Uploads)
	if err != nil {
		return nil, err
	}
	defer func() { s.metrics.RecordUpload("update", outcome(err), files.Size()) }()

	err = s.withLock(ctx, lock.Keys.SiteUpdate(site.SiteID.String()), func(ctx context.Context) error {
		if err := s.files.ReplaceFiles(ctx, site.SiteID, files); err != nil {
			s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to replace site files")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sites.Touch(ctx, site); err != nil {
		// The new files are already live.
		s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to record site update")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("domain", site.Domain).
		Int("files", len(files)).
		Int64("bytes", files.Size()).
		Msg("site updated")

	return &UpdateSiteOutput{Site: site, Files: len(files), Bytes: files.Size()}, nil
}

// storeNewSite allocates storage for a site that is not yet registered and
// writes its first file set. Storage is discarded on failure.
func (s *TenantService) storeNewSite(ctx context.Context, site *domain.Site, files storage.FileSet) error {
	if err := s.allocate(ctx, site.SiteID); err != nil {
		return err
	}
	if err := s.files.ReplaceFiles(ctx, site.SiteID, files); err != nil {
		s.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to write site files")
		s.discard(site.SiteID)
		return err
	}
	return nil
}

// outcome labels a result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInternalError),
		errors.Is(err, domain.ErrWriteFailed),
		errors.Is(err, domain.ErrAllocationFailed):
		return "error"
	default:
		return "rejected"
	}
}
