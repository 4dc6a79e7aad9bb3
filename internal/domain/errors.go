// Package domain contains the core business entities for PawNetwork.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Registry Errors
	// ===========================================

	// ErrDuplicateEmail indicates a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateDomain indicates the domain is already claimed.
	ErrDuplicateDomain = errors.New("domain taken")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSiteNotFound indicates no site is registered for the domain or site ID.
	ErrSiteNotFound = errors.New("site not found")

	// ErrInvalidDomain indicates the domain cannot be claimed by a tenant.
	ErrInvalidDomain = errors.New("invalid domain")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized indicates the request carries no recognized token.
	ErrUnauthorized = errors.New("login required")

	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("not your site")

	// ===========================================
	// File Storage Errors
	// ===========================================

	// ErrFileNotFound indicates neither the requested file nor index.html exists.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath indicates a path that is absolute or escapes the site root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrMalformedArchive indicates a corrupt zip or an entry escaping the site root.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrAllocationFailed indicates site storage could not be created.
	ErrAllocationFailed = errors.New("storage allocation failed")

	// ErrWriteFailed indicates a file set could not be written.
	ErrWriteFailed = errors.New("storage write failed")

	// ErrSiteBusy indicates another update of the same site holds the lock.
	ErrSiteBusy = errors.New("site is busy, try again")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., domain, file path).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
