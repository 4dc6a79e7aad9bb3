// Package metrics provides Prometheus metrics for PawNetwork.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route decisions of the host router.
const (
	RoutePortal   = "portal"
	RouteRedirect = "redirect"
	RouteTenant   = "tenant"
	RouteNotFound = "not_found"
	RouteApp      = "app"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	routeDecisions  *prometheus.CounterVec
	siteViews       prometheus.Counter
	signups         *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	sweepRuns       prometheus.Counter
	sweepRemoved    prometheus.Counter
	sweepLastRun    prometheus.Gauge
}

// New creates the metrics on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawnet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pawnet_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		routeDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawnet_route_decisions_total",
				Help: "Host router outcomes by decision",
			},
			[]string{"decision"},
		),
		siteViews: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pawnet_site_views_total",
				Help: "Views counted across all tenant sites",
			},
		),
		signups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawnet_signups_total",
				Help: "Signup attempts by outcome",
			},
			[]string{"outcome"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pawnet_site_uploads_total",
				Help: "File set uploads by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		uploadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pawnet_site_upload_bytes",
				Help:    "Size of accepted file sets in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		sweepRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pawnet_sweep_runs_total",
				Help: "Completed storage sweeps",
			},
		),
		sweepRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pawnet_sweep_sites_removed_total",
				Help: "Orphan site directories removed by the sweeper",
			},
		),
		sweepLastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pawnet_sweep_last_run_timestamp_seconds",
				Help: "Unix time of the last completed storage sweep",
			},
		),
	}
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRoute records one host router decision.
func (m *Metrics) RecordRoute(decision string) {
	m.routeDecisions.WithLabelValues(decision).Inc()
}

// RecordSiteView records a counted tenant view.
func (m *Metrics) RecordSiteView() {
	m.siteViews.Inc()
}

// RecordSignup records a signup outcome ("success", "rejected", "error").
func (m *Metrics) RecordSignup(outcome string) {
	m.signups.WithLabelValues(outcome).Inc()
}

// RecordUpload records a file set upload of size bytes.
func (m *Metrics) RecordUpload(operation, outcome string, size int64) {
	m.uploads.WithLabelValues(operation, outcome).Inc()
	if outcome == "success" {
		m.uploadBytes.Observe(float64(size))
	}
}

// RecordSweep records a completed storage sweep.
func (m *Metrics) RecordSweep(removed int) {
	m.sweepRuns.Inc()
	m.sweepRemoved.Add(float64(removed))
	m.sweepLastRun.SetToCurrentTime()
}
