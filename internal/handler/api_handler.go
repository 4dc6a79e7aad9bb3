package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/auth"
	"github.com/justdev-chris/PawNetwork/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

// APIHandler serves the JSON API under /api.
type APIHandler struct {
	registry TenantRegistry
	logger   zerolog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(registry TenantRegistry, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		registry: registry,
		logger:   logger.With().Str("handler", "api").Logger(),
	}
}

// RegisterRoutes registers the API routes on r. Routes behind authMW
// require a token.
func (h *APIHandler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/update-site", h.handleUpdateSite)
		r.Post("/add-site", h.handleAddSite)
		r.Get("/analytics/{domain}", h.handleAnalytics)
		r.Get("/my-sites", h.handleMySites)
	})
}

// =============================================================================
// Account Handlers
// =============================================================================

func (h *APIHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	uploads, ok := h.parseUploads(w, r)
	if !ok {
		return
	}

	out, err := h.registry.Signup(r.Context(), service.SignupInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Domain:   r.FormValue("domain"),
		Uploads:  uploads,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{
		Success: true,
		Token:   out.User.Email,
		SiteID:  out.Site.SiteID.String(),
		Domain:  out.Site.Domain,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, r, h.logger, err)
			return
		}
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.registry.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	domains := user.Domains
	if domains == nil {
		domains = []string{}
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   user.Email,
		Domains: domains,
	})
}

// =============================================================================
// Site Handlers
// =============================================================================

func (h *APIHandler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	authCtx, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	uploads, ok := h.parseUploads(w, r)
	if !ok {
		return
	}

	_, err = h.registry.UpdateSite(r.Context(), service.UpdateSiteInput{
		OwnerEmail: authCtx.Email,
		Domain:     r.FormValue("domain"),
		Uploads:    uploads,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateSiteResponse{Success: true})
}

func (h *APIHandler) handleAddSite(w http.ResponseWriter, r *http.Request) {
	authCtx, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	uploads, ok := h.parseUploads(w, r)
	if !ok {
		return
	}

	out, err := h.registry.AddSite(r.Context(), service.AddSiteInput{
		OwnerEmail: authCtx.Email,
		Domain:     r.FormValue("domain"),
		Uploads:    uploads,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AddSiteResponse{
		Success: true,
		SiteID:  out.Site.SiteID.String(),
		Domain:  out.Site.Domain,
	})
}

func (h *APIHandler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	authCtx, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	views, err := h.registry.SiteViews(r.Context(), authCtx.Email, chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResponse{Views: views})
}

func (h *APIHandler) handleMySites(w http.ResponseWriter, r *http.Request) {
	authCtx, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	stats, err := h.registry.SiteStats(r.Context(), authCtx.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := MySitesResponse{Sites: make([]SiteSummary, 0, len(stats))}
	for _, st := range stats {
		resp.Sites = append(resp.Sites, SiteSummary{
			Domain:  st.Site.Domain,
			SiteID:  st.Site.SiteID.String(),
			Views:   st.Views,
			Created: st.Site.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Uploads
// =============================================================================

// parseUploads reads the multipart form of r. The archive field comes
// first and the remaining fields follow in name order, so individual files
// override archive entries with the same path. It writes the error
// response itself and reports false when the form is unusable.
func (h *APIHandler) parseUploads(w http.ResponseWriter, r *http.Request) ([]service.UploadedFile, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, r, h.logger, err)
			return nil, false
		}
		writeFailure(w, http.StatusBadRequest, "Invalid form data")
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		ai, aj := fields[i] == service.ArchiveField, fields[j] == service.ArchiveField
		if ai != aj {
			return ai
		}
		return fields[i] < fields[j]
	})

	var uploads []service.UploadedFile
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			data, err := readPart(fh)
			if err != nil {
				writeError(w, r, h.logger, err)
				return nil, false
			}
			uploads = append(uploads, service.UploadedFile{
				FieldName: field,
				FileName:  fh.Filename,
				Data:      data,
			})
		}
	}

	return uploads, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
