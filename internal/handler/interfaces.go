package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/service"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// TenantRegistry is the registry surface the JSON API needs.
type TenantRegistry interface {
	Signup(ctx context.Context, input service.SignupInput) (*service.SignupOutput, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	AddSite(ctx context.Context, input service.AddSiteInput) (*service.AddSiteOutput, error)
	UpdateSite(ctx context.Context, input service.UpdateSiteInput) (*service.UpdateSiteOutput, error)
	SiteViews(ctx context.Context, email, name string) (int64, error)
	SiteStats(ctx context.Context, email string) ([]domain.SiteStats, error)
}

// SiteResolver is the registry surface the host router needs.
type SiteResolver interface {
	LookupSite(ctx context.Context, name string) (*domain.Site, error)
	SiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error)
	RecordView(ctx context.Context, site *domain.Site) (int64, error)
	OpenFile(ctx context.Context, siteID uuid.UUID, requestedPath string) (*storage.File, error)
}

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

var (
	_ TenantRegistry = (*service.TenantService)(nil)
	_ SiteResolver   = (*service.TenantService)(nil)
)
