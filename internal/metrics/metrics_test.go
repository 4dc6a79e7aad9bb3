package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordRoute(RouteTenant)
	m.RecordRoute(RouteTenant)
	m.RecordRoute(RouteNotFound)
	m.RecordSiteView()
	m.RecordSignup("success")
	m.RecordUpload("update", "success", 2048)
	m.RecordHTTPRequest(http.MethodGet, "/*", http.StatusOK, 5*time.Millisecond)
	m.RecordSweep(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.routeDecisions.WithLabelValues(RouteTenant)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.routeDecisions.WithLabelValues(RouteNotFound)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.siteViews))
	require.Equal(t, 1.0, testutil.ToFloat64(m.signups.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("update", "success")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.sweepRemoved))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sweepRuns))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordSiteView()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "pawnet_site_views_total 1")
}
