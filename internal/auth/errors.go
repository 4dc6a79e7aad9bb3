package auth

import (
	"errors"
	"net/http"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

// Authentication errors.
var (
	// ErrMissingToken indicates the Authorization header is absent or empty.
	ErrMissingToken = errors.New("missing authorization token")

	// ErrMalformedToken indicates the Authorization header cannot carry a token.
	ErrMalformedToken = errors.New("malformed authorization header")
)

// AuthError is an authentication failure ready to be written to the client.
type AuthError struct {
	// Message is the client-facing message.
	Message string

	// HTTPStatus is the HTTP status code.
	HTTPStatus int

	// Err is the underlying error.
	Err error
}

func (e *AuthError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError classifies err. Missing, malformed and unknown tokens all
// answer 401 with the same message; anything else is a server failure.
func NewAuthError(err error) *AuthError {
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrMalformedToken),
		errors.Is(err, domain.ErrUnauthorized):
		return &AuthError{
			Message:    "Login required",
			HTTPStatus: http.StatusUnauthorized,
			Err:        err,
		}

	default:
		return &AuthError{
			Message:    "Internal server error",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
		}
	}
}
