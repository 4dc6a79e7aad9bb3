package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

// TokenResolver resolves API tokens to users.
type TokenResolver interface {
	// UserByToken returns domain.ErrUnauthorized for unknown tokens.
	UserByToken(ctx context.Context, token string) (*domain.User, error)
}

// Middleware creates an authentication middleware. Requests without a
// recognized token are answered 401 and never reach next.
func Middleware(resolver TokenResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromRequest(r)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request without usable token")
				writeAuthError(w, err)
				return
			}

			user, err := resolver.UserByToken(r.Context(), token)
			if err != nil {
				authErr := NewAuthError(err)
				if authErr.HTTPStatus >= http.StatusInternalServerError {
					logger.Error().Err(err).Str("path", r.URL.Path).Msg("token lookup failed")
				} else {
					logger.Debug().Str("path", r.URL.Path).Msg("unknown token")
				}
				writeAuthError(w, err)
				return
			}

			ctx := WithAuthContext(r.Context(), &AuthContext{Email: user.Email, User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr := NewAuthError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   authErr.Message,
	})
}
