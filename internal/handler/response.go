package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/service"
)

// =============================================================================
// Response Bodies
// =============================================================================

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SignupResponse is returned by POST /api/signup.
type SignupResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	SiteID  string `json:"siteId"`
	Domain  string `json:"domain"`
}

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	Domains []string `json:"domains"`
}

// UpdateSiteResponse is returned by POST /api/update-site.
type UpdateSiteResponse struct {
	Success bool `json:"success"`
}

// AddSiteResponse is returned by POST /api/add-site.
type AddSiteResponse struct {
	Success bool   `json:"success"`
	SiteID  string `json:"siteId"`
	Domain  string `json:"domain"`
}

// AnalyticsResponse is returned by GET /api/analytics/{domain}.
type AnalyticsResponse struct {
	Views int64 `json:"views"`
}

// SiteSummary is one entry of GET /api/my-sites.
type SiteSummary struct {
	Domain  string `json:"domain"`
	SiteID  string `json:"siteId"`
	Views   int64  `json:"views"`
	Created string `json:"created"`
}

// MySitesResponse is returned by GET /api/my-sites.
type MySitesResponse struct {
	Sites []SiteSummary `json:"sites"`
}

// =============================================================================
// Writers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// apiError is the status and message an error is answered with.
type apiError struct {
	Status  int
	Message string
}

// classify maps service and domain errors to API responses. Registry
// rejections keep the 200 status browsers of the portal pages expect.
func classify(err error) apiError {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apiError{http.StatusOK, "Email already exists"}
	case errors.Is(err, domain.ErrDuplicateDomain):
		return apiError{http.StatusOK, "Domain taken"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apiError{http.StatusOK, "Invalid credentials"}
	case errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrMissingDomain),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword):
		return apiError{http.StatusOK, message(err)}
	case errors.Is(err, domain.ErrMalformedArchive), errors.Is(err, domain.ErrInvalidPath):
		return apiError{http.StatusBadRequest, message(err)}
	case errors.As(err, &maxBytes):
		return apiError{http.StatusRequestEntityTooLarge, "Upload too large"}
	case errors.Is(err, domain.ErrUnauthorized):
		return apiError{http.StatusUnauthorized, "Login required"}
	case errors.Is(err, domain.ErrForbidden):
		return apiError{http.StatusForbidden, "Not your site"}
	case errors.Is(err, domain.ErrSiteNotFound), errors.Is(err, domain.ErrUserNotFound):
		return apiError{http.StatusNotFound, "Site not found"}
	case errors.Is(err, domain.ErrSiteBusy):
		return apiError{http.StatusConflict, "Site is busy, try again"}
	default:
		return apiError{http.StatusInternalServerError, "Internal server error"}
	}
}

// message returns the client facing text of a rejection. DomainError
// context is kept since it names only what the client sent.
func message(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Err.Error() + ": " + domainErr.Message
	}
	return err.Error()
}

// writeError answers err and logs it when it is not the client's fault.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	apiErr := classify(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeFailure(w, apiErr.Status, apiErr.Message)
}
