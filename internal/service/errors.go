// Package service provides business logic services for PawNetwork.
package service

import "errors"

// Common service errors.
var (
	// Validation errors
	ErrMissingFields   = errors.New("email, password and domain are required")
	ErrMissingDomain   = errors.New("domain is required")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidPassword = errors.New("invalid password: must be 1-72 bytes")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
