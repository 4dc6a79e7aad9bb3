package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// DomainQueryParam is the query parameter the landing page uses to jump to
// a tenant site.
const DomainQueryParam = "domain"

// HostRouter decides per request, from the Host header and the domain
// query parameter, whether to serve a portal page, redirect to a tenant
// site, serve tenant files or fall back to the root application page.
type HostRouter struct {
	sites   SiteResolver
	pages   *Pages
	rules   domain.TenantRules
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewHostRouter creates a new HostRouter.
func NewHostRouter(sites SiteResolver, pages *Pages, rules domain.TenantRules, m metrics.Recorder, logger zerolog.Logger) *HostRouter {
	if m == nil {
		m = metrics.Nop{}
	}
	return &HostRouter{
		sites:   sites,
		pages:   pages,
		rules:   rules,
		metrics: m,
		logger:  logger.With().Str("handler", "host_router").Logger(),
	}
}

// ServeHTTP implements http.Handler.
func (h *HostRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := domain.NormalizeHost(r.Host)

	switch host {
	case h.rules.RegisterHost:
		h.metrics.RecordRoute(metrics.RoutePortal)
		h.pages.Register(w, r)
		return
	case h.rules.DashboardHost:
		h.metrics.RecordRoute(metrics.RoutePortal)
		h.pages.Dashboard(w, r)
		return
	}

	if target := domain.NormalizeHost(r.URL.Query().Get(DomainQueryParam)); h.rules.IsTenantHost(target) {
		h.redirectToSite(w, r, target)
		return
	}

	if h.rules.IsTenantHost(host) {
		h.serveTenant(w, r, host)
		return
	}

	h.metrics.RecordRoute(metrics.RouteApp)
	h.pages.Index(w, r)
}

func (h *HostRouter) redirectToSite(w http.ResponseWriter, r *http.Request, name string) {
	site, err := h.sites.LookupSite(r.Context(), name)
	if err != nil {
		h.notFound(w, r, name, false, err)
		return
	}

	h.metrics.RecordRoute(metrics.RouteRedirect)
	http.Redirect(w, r, sitePath(site.SiteID), http.StatusFound)
}

func (h *HostRouter) serveTenant(w http.ResponseWriter, r *http.Request, host string) {
	site, err := h.sites.LookupSite(r.Context(), host)
	if err != nil {
		h.notFound(w, r, host, false, err)
		return
	}

	h.metrics.RecordRoute(metrics.RouteTenant)
	if _, err := h.sites.RecordView(r.Context(), site); err != nil {
		// A lost count never blocks the page.
		h.logger.Warn().Err(err).Str("domain", site.Domain).Msg("view not counted")
	}

	h.serveFile(w, r, site, r.URL.Path)
}

// ServeSite serves GET /domains/{siteId}/*. Views are not counted here.
func (h *HostRouter) ServeSite(w http.ResponseWriter, r *http.Request) {
	siteID, err := uuid.Parse(chi.URLParam(r, "siteId"))
	if err != nil {
		h.pages.NotFound(w, "", false)
		return
	}

	site, err := h.sites.SiteByID(r.Context(), siteID)
	if err != nil {
		h.notFound(w, r, "", false, err)
		return
	}

	h.serveFile(w, r, site, chi.URLParam(r, "*"))
}

// RedirectSiteRoot sends /domains/{siteId} to /domains/{siteId}/ so
// relative links in the site resolve against its root.
func (h *HostRouter) RedirectSiteRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
}

func (h *HostRouter) serveFile(w http.ResponseWriter, r *http.Request, site *domain.Site, requested string) {
	f, err := h.sites.OpenFile(r.Context(), site.SiteID, requested)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPath):
			http.Error(w, "Invalid path", http.StatusBadRequest)
		case errors.Is(err, domain.ErrFileNotFound):
			h.pages.NotFound(w, site.Domain, true)
		default:
			h.logger.Error().Err(err).Str("domain", site.Domain).Msg("failed to open site file")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	defer f.Content.Close()

	writeFileHeaders(w, f)
	http.ServeContent(w, r, f.Path, f.ModTime, f.Content)
}

func writeFileHeaders(w http.ResponseWriter, f *storage.File) {
	if f.ETag != "" {
		w.Header().Set("ETag", f.ETag)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
}

func (h *HostRouter) notFound(w http.ResponseWriter, r *http.Request, name string, registered bool, err error) {
	if !errors.Is(err, domain.ErrSiteNotFound) {
		h.logger.Error().Err(err).Str("domain", name).Msg("failed to look up site")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordRoute(metrics.RouteNotFound)
	h.pages.NotFound(w, name, registered)
}

func sitePath(siteID uuid.UUID) string {
	return "/domains/" + siteID.String() + "/"
}
