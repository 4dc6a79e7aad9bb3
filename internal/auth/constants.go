// Package auth provides token authentication for the PawNetwork API.
// The API token of an account is its email address, sent verbatim in the
// Authorization header or behind a "Bearer " scheme.
package auth

// =============================================================================
// Authorization Header Constants
// =============================================================================

const (
	// AuthorizationHeader is the HTTP header for authorization.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the optional scheme prefix of the token.
	BearerScheme = "Bearer"

	// MaxTokenLength bounds the accepted token size.
	MaxTokenLength = 254
)
