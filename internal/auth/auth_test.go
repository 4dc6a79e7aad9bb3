package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

type mockResolver struct {
	users map[string]*domain.User
	err   error
}

func (m *mockResolver) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "raw", header: "a@b.com", want: "a@b.com"},
		{name: "bearer", header: "Bearer a@b.com", want: "a@b.com"},
		{name: "bearer lowercase", header: "bearer a@b.com", want: "a@b.com"},
		{name: "padded", header: "  a@b.com  ", want: "a@b.com"},
		{name: "empty", header: "", wantErr: ErrMissingToken},
		{name: "bearer only", header: "Bearer ", wantErr: ErrMissingToken},
		{name: "other scheme", header: "Basic YWJj", wantErr: ErrMalformedToken},
		{name: "too long", header: strings.Repeat("a", MaxTokenLength+1), wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.header)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	resolver := &mockResolver{users: map[string]*domain.User{
		"a@b.com": {Email: "a@b.com"},
	}}

	var seen *AuthContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(resolver, zerolog.Nop())(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "known token", header: "a@b.com", wantStatus: http.StatusNoContent},
		{name: "known bearer token", header: "Bearer a@b.com", wantStatus: http.StatusNoContent},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "unknown", header: "nobody@b.com", wantStatus: http.StatusUnauthorized},
		{name: "malformed", header: "Basic abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/my-sites", nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "a@b.com", seen.Email)
				return
			}
			assert.Nil(t, seen)
			assert.JSONEq(t, `{"success":false,"error":"Login required"}`, rec.Body.String())
		})
	}
}

func TestMiddleware_ResolverFailure(t *testing.T) {
	handler := Middleware(&mockResolver{err: errors.New("db down")}, zerolog.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next must not run")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/my-sites", nil)
	req.Header.Set(AuthorizationHeader, "a@b.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestRequireAuth(t *testing.T) {
	_, err := RequireAuth(context.Background())
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	ctx := WithAuthContext(context.Background(), &AuthContext{Email: "a@b.com"})
	authCtx, err := RequireAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", authCtx.Email)
}
