package auth

import (
	"net/http"
	"strings"
)

// ParseToken extracts the API token from the Authorization header value.
// Both "<token>" and "Bearer <token>" are accepted.
func ParseToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	if scheme, rest, found := strings.Cut(header, " "); found {
		if !strings.EqualFold(scheme, BearerScheme) {
			return "", ErrMalformedToken
		}
		header = strings.TrimSpace(rest)
		if header == "" {
			return "", ErrMissingToken
		}
	}

	if len(header) > MaxTokenLength || strings.ContainsAny(header, " \t\r\n") {
		return "", ErrMalformedToken
	}
	return header, nil
}

// TokenFromRequest extracts the API token of a request.
func TokenFromRequest(r *http.Request) (string, error) {
	return ParseToken(r.Header.Get(AuthorizationHeader))
}
