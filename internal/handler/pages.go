// Package handler provides HTTP handlers for PawNetwork.
package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages renders the operator pages and the branded not-found page.
type Pages struct {
	templates *template.Template
	rules     domain.TenantRules
	logger    zerolog.Logger
}

// NewPages parses the embedded templates.
func NewPages(rules domain.TenantRules, logger zerolog.Logger) (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Pages{
		templates: tmpl,
		rules:     rules,
		logger:    logger.With().Str("handler", "pages").Logger(),
	}, nil
}

// =============================================================================
// Template Data Structs
// =============================================================================

// PageData contains common page data.
type PageData struct {
	Title         string
	Suffix        string
	RegisterHost  string
	DashboardHost string

	// Domain is the host a not-found page is about.
	Domain string

	// Registered marks a not-found page for a claimed domain without files.
	Registered bool
}

func (p *Pages) data(title string) PageData {
	return PageData{
		Title:         title,
		Suffix:        p.rules.Suffix,
		RegisterHost:  p.rules.RegisterHost,
		DashboardHost: p.rules.DashboardHost,
	}
}

// =============================================================================
// Page Handlers
// =============================================================================

// Index serves the root application page.
func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "index.html", p.data("PawNetwork"))
}

// Register serves the registration portal.
func (p *Pages) Register(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "register.html", p.data("Register - PawNetwork"))
}

// Dashboard serves the dashboard portal.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "dashboard.html", p.data("Dashboard - PawNetwork"))
}

// NotFound serves the branded 404 page for name. An empty name renders
// the generic variant.
func (p *Pages) NotFound(w http.ResponseWriter, name string, registered bool) {
	data := p.data("404 - Site Not Found")
	data.Domain = name
	data.Registered = registered
	p.render(w, http.StatusNotFound, "not_found.html", data)
}

// render executes into a buffer first so a template failure never leaves
// a half-written page behind a success status.
func (p *Pages) render(w http.ResponseWriter, status int, name string, data PageData) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
