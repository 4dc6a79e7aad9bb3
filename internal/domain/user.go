// Package domain contains the core business entities for PawNetwork.
// These are pure Go structs with no external dependencies, representing
// tenants, the sites they claim and the rules those names must follow.
package domain

import (
	"time"
)

// User represents a registered tenant.
// Users own one or more sites and authenticate with email and password.
type User struct {
	// Email is the unique identifier of the user and doubles as the API token.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Domains lists the domains owned by the user, oldest first.
	// It is derived from the sites table and never stored on its own,
	// so it always points back at sites owned by this user.
	Domains []string `json:"domains"`

	// CreatedAt is the timestamp when the user signed up.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Domains:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
