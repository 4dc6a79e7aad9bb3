package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/auth"
	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/lock"
	"github.com/justdev-chris/PawNetwork/internal/metrics"
	"github.com/justdev-chris/PawNetwork/internal/pkg/crypto"
	"github.com/justdev-chris/PawNetwork/internal/repository/memory"
	"github.com/justdev-chris/PawNetwork/internal/service"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

var testRules = domain.TenantRules{
	Suffix:        ".cats",
	RegisterHost:  "register.cats",
	DashboardHost: "dashboard.cats",
}

type testServer struct {
	handler http.Handler
	svc     *service.TenantService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	store := memory.NewStore()
	files, err := storage.NewFileStore(storage.DefaultPathConfig(t.TempDir()), logger)
	require.NoError(t, err)

	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)

	m := metrics.New()
	svc := service.NewTenantService(store.Repositories(), files, crypto.NewPasswordHasher(4), locker, m, service.TenantConfig{
		Rules:        testRules,
		Lock:         lock.Options{TTL: 5 * time.Second, MaxRetries: 100, RetryDelay: time.Millisecond},
		MaxSiteBytes: 1 << 20,
	}, logger)

	pages, err := NewPages(testRules, logger)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		API:            NewAPIHandler(svc, logger),
		Hosts:          NewHostRouter(svc, pages, testRules, m, logger),
		Pages:          pages,
		AuthMiddleware: auth.Middleware(svc, logger),
		Health:         store,
		Metrics:        m,
		MetricsPath:    "/metrics",
		MaxBodySize:    2 << 20,
		Logger:         logger,
	})

	return &testServer{handler: router.Handler(), svc: svc, metrics: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(host, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = host
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return s.do(req)
}

type part struct {
	field, name, content string
}

func multipartRequest(t *testing.T, target, token string, values map[string]string, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, p.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Host = "pawnetwork.local"
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func zipArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(f, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.String()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) signup(t *testing.T, email, name, index string) SignupResponse {
	t.Helper()
	rec := s.do(multipartRequest(t, "/api/signup", "", map[string]string{
		"email":    email,
		"password": "pw",
		"domain":   name,
	}, part{"files", "index.html", index}))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SignupResponse](t, rec)
	require.True(t, resp.Success, rec.Body.String())
	return resp
}

func (s *testServer) login(email, password string) *httptest.ResponseRecorder {
	body := strings.NewReader(`{"email":"` + email + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Host = "pawnetwork.local"
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

// =============================================================================
// API
// =============================================================================

func TestAPI_SignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	signup := s.signup(t, "a@b.com", "kitty.cats", "<h1>meow</h1>")
	assert.Equal(t, "a@b.com", signup.Token)
	assert.Equal(t, "kitty.cats", signup.Domain)
	assert.NotEmpty(t, signup.SiteID)

	rec := s.login("a@b.com", "pw")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[LoginResponse](t, rec)
	assert.True(t, login.Success)
	assert.Equal(t, []string{"kitty.cats"}, login.Domains)

	rec = s.get("pawnetwork.local", "/api/my-sites", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	sites := decode[MySitesResponse](t, rec)
	require.Len(t, sites.Sites, 1)
	assert.Equal(t, "kitty.cats", sites.Sites[0].Domain)
	assert.Equal(t, signup.SiteID, sites.Sites[0].SiteID)
	assert.Equal(t, int64(0), sites.Sites[0].Views)

	rec = s.get("pawnetwork.local", "/api/my-sites", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_LoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "hi")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "a@b.com", password: "nope"},
		{name: "unknown email", email: "x@b.com", password: "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.login(tt.email, tt.password)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, "Invalid credentials", resp.Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
		rec := s.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_SignupRejections(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "hi")

	slip := zipArchive(t, map[string]string{
		"index.html":    "ok",
		"../escape.txt": "pwned",
	})

	tests := []struct {
		name       string
		values     map[string]string
		parts      []part
		wantStatus int
		wantError  string
	}{
		{
			name:       "duplicate email",
			values:     map[string]string{"email": "A@B.com", "password": "pw", "domain": "other.cats"},
			wantStatus: http.StatusOK,
			wantError:  "Email already exists",
		},
		{
			name:       "duplicate domain",
			values:     map[string]string{"email": "c@d.com", "password": "pw", "domain": "KITTY.cats"},
			wantStatus: http.StatusOK,
			wantError:  "Domain taken",
		},
		{
			name:       "missing fields",
			values:     map[string]string{"email": "c@d.com"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong suffix",
			values:     map[string]string{"email": "c@d.com", "password": "pw", "domain": "kitty.dogs"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "zip slip",
			values:     map[string]string{"email": "c@d.com", "password": "pw", "domain": "evil.cats"},
			parts:      []part{{"zip", "site.zip", slip}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(multipartRequest(t, "/api/signup", "", tt.values, tt.parts...))
			require.Equal(t, tt.wantStatus, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
		})
	}

	// Nothing of the rejected zip-slip signup was registered.
	rec := s.get("evil.cats", "/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_UpdateSite(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "v1")
	s.signup(t, "c@d.com", "doggo.cats", "other")

	t.Run("requires login", func(t *testing.T) {
		rec := s.do(multipartRequest(t, "/api/update-site", "", map[string]string{"domain": "kitty.cats"}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Login required", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("not your site", func(t *testing.T) {
		rec := s.do(multipartRequest(t, "/api/update-site", "a@b.com",
			map[string]string{"domain": "doggo.cats"}, part{"files", "index.html", "hijack"}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Not your site", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("unknown domain", func(t *testing.T) {
		rec := s.do(multipartRequest(t, "/api/update-site", "a@b.com",
			map[string]string{"domain": "ghost.cats"}, part{"files", "index.html", "x"}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("replaces files", func(t *testing.T) {
		rec := s.do(multipartRequest(t, "/api/update-site", "a@b.com",
			map[string]string{"domain": "kitty.cats"},
			part{"zip", "site.zip", zipArchive(t, map[string]string{"index.html": "archived", "docs/index.html": "docs"})},
			part{"files", "index.html", "v2"},
		))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[UpdateSiteResponse](t, rec).Success)

		rec = s.get("kitty.cats", "/", "")
		assert.Equal(t, "v2", rec.Body.String())

		rec = s.get("kitty.cats", "/docs/", "")
		assert.Equal(t, "docs", rec.Body.String())

		rec = s.get("doggo.cats", "/", "")
		assert.Equal(t, "other", rec.Body.String())
	})
}

func TestAPI_AddSite(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "one")

	rec := s.do(multipartRequest(t, "/api/add-site", "a@b.com",
		map[string]string{"domain": "second.cats"}, part{"files", "index.html", "two"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AddSiteResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "second.cats", resp.Domain)

	rec = s.get("second.cats", "/", "")
	assert.Equal(t, "two", rec.Body.String())

	rec = s.login("a@b.com", "pw")
	assert.Equal(t, []string{"kitty.cats", "second.cats"}, decode[LoginResponse](t, rec).Domains)
}

func TestAPI_Analytics(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "hi")
	s.signup(t, "c@d.com", "doggo.cats", "hi")

	views := func() int64 {
		rec := s.get("pawnetwork.local", "/api/analytics/kitty.cats", "a@b.com")
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[AnalyticsResponse](t, rec).Views
	}

	assert.Equal(t, int64(0), views())

	s.get("kitty.cats", "/", "")
	assert.Equal(t, int64(1), views())

	s.get("kitty.cats:8080", "/about.html", "")
	assert.Equal(t, int64(2), views())

	// Portal pages, other tenants and the analytics call itself add nothing.
	s.get("register.cats", "/", "")
	s.get("doggo.cats", "/", "")
	s.get("pawnetwork.local", "/?domain=kitty.cats", "")
	assert.Equal(t, int64(2), views())

	rec := s.get("pawnetwork.local", "/api/analytics/doggo.cats", "a@b.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.get("pawnetwork.local", "/metrics", "")
	assert.Contains(t, rec.Body.String(), "pawnet_site_views_total 2")
}

// =============================================================================
// Host Routing
// =============================================================================

func TestHostRouter(t *testing.T) {
	s := newTestServer(t)
	signup := s.signup(t, "a@b.com", "kitty.cats", "<p>kitty home</p>")

	tests := []struct {
		name         string
		host         string
		target       string
		wantStatus   int
		wantContains []string
		wantLocation string
	}{
		{
			name:         "register portal",
			host:         "register.cats",
			target:       "/",
			wantStatus:   http.StatusOK,
			wantContains: []string{"Claim your .cats site"},
		},
		{
			name:         "dashboard portal ignores registry",
			host:         "Dashboard.CATS:443",
			target:       "/anything",
			wantStatus:   http.StatusOK,
			wantContains: []string{"<h1>Dashboard</h1>"},
		},
		{
			name:         "tenant site",
			host:         "kitty.cats",
			target:       "/",
			wantStatus:   http.StatusOK,
			wantContains: []string{"kitty home"},
		},
		{
			name:         "missing file falls back to index",
			host:         "kitty.cats.",
			target:       "/missing/page.html",
			wantStatus:   http.StatusOK,
			wantContains: []string{"kitty home"},
		},
		{
			name:         "unclaimed domain",
			host:         "unclaimed.cats",
			target:       "/",
			wantStatus:   http.StatusNotFound,
			wantContains: []string{"unclaimed.cats", "register.cats"},
		},
		{
			name:         "domain query redirects",
			host:         "pawnetwork.local",
			target:       "/?domain=Kitty.cats",
			wantStatus:   http.StatusFound,
			wantLocation: "/domains/" + signup.SiteID + "/",
		},
		{
			name:         "domain query for unknown site",
			host:         "pawnetwork.local",
			target:       "/?domain=ghost.cats",
			wantStatus:   http.StatusNotFound,
			wantContains: []string{"ghost.cats"},
		},
		{
			name:         "root application",
			host:         "pawnetwork.local",
			target:       "/",
			wantStatus:   http.StatusOK,
			wantContains: []string{"PawNetwork"},
		},
		{
			name:         "site by id",
			host:         "pawnetwork.local",
			target:       "/domains/" + signup.SiteID + "/",
			wantStatus:   http.StatusOK,
			wantContains: []string{"kitty home"},
		},
		{
			name:         "site by id without slash",
			host:         "pawnetwork.local",
			target:       "/domains/" + signup.SiteID,
			wantStatus:   http.StatusMovedPermanently,
			wantLocation: "/domains/" + signup.SiteID + "/",
		},
		{
			name:       "unknown site id",
			host:       "pawnetwork.local",
			target:     "/domains/00000000-0000-0000-0000-000000000000/",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed site id",
			host:       "pawnetwork.local",
			target:     "/domains/not-a-uuid/",
			wantStatus: http.StatusNotFound,
		},
		{
			name:         "register page route",
			host:         "kitty.cats",
			target:       "/register.html",
			wantStatus:   http.StatusOK,
			wantContains: []string{"Claim your .cats site"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.get(tt.host, tt.target, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			for _, want := range tt.wantContains {
				assert.Contains(t, rec.Body.String(), want)
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestHostRouter_FileHeaders(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "<p>hi</p>")

	rec := s.get("kitty.cats", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "kitty.cats"
	req.Header.Set("If-None-Match", etag)
	rec = s.do(req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHostRouter_InvalidPath(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "a@b.com", "kitty.cats", "hi")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "kitty.cats"
	req.URL.Path = "/a/../../secret"
	rec := s.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("pawnetwork.local", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = s.get("pawnetwork.local", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pawnet_http_requests_total")
}
