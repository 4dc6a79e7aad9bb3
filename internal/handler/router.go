package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/config"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
)

// healthTimeout bounds the database ping of /health.
const healthTimeout = 2 * time.Second

// Router wires the HTTP surface of PawNetwork.
type Router struct {
	api            *APIHandler
	hosts          *HostRouter
	pages          *Pages
	authMiddleware func(http.Handler) http.Handler
	health         HealthChecker
	metrics        *metrics.Metrics
	metricsPath    string
	cors           config.CORSConfig
	maxBodySize    int64
	logger         zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	API            *APIHandler
	Hosts          *HostRouter
	Pages          *Pages
	AuthMiddleware func(http.Handler) http.Handler
	Health         HealthChecker

	// Metrics is nil when metrics are disabled.
	Metrics     *metrics.Metrics
	MetricsPath string

	CORS        config.CORSConfig
	MaxBodySize int64
	Logger      zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		api:            cfg.API,
		hosts:          cfg.Hosts,
		pages:          cfg.Pages,
		authMiddleware: cfg.AuthMiddleware,
		health:         cfg.Health,
		metrics:        cfg.Metrics,
		metricsPath:    cfg.MetricsPath,
		cors:           cfg.CORS,
		maxBodySize:    cfg.MaxBodySize,
		logger:         cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	var recorder metrics.Recorder = metrics.Nop{}
	if rt.metrics != nil {
		recorder = rt.metrics
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(rt.logger, recorder))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)

	if rt.metrics != nil && rt.metricsPath != "" {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if rt.cors.Enabled {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: rt.cors.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAge:         300,
			}))
		}
		r.Use(maxBody(rt.maxBodySize))
		rt.api.RegisterRoutes(r, rt.authMiddleware)
	})

	r.Get("/register.html", rt.pages.Register)

	r.Get("/domains/{siteId}", rt.hosts.RedirectSiteRoot)
	r.Get("/domains/{siteId}/*", rt.hosts.ServeSite)

	// Everything else goes through host based routing.
	r.Handle("/*", rt.hosts)

	return r
}

// handleHealth reports liveness and database reachability.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := rt.health.Ping(ctx); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
