package domain

import (
	"time"

	"github.com/google/uuid"
)

// Site represents a claimed domain and the file set served for it.
type Site struct {
	// Domain is the unique, lower-cased host name the site is served on.
	// It always ends with the configured tenant suffix.
	Domain string `json:"domain"`

	// OwnerEmail references the User that registered the site.
	OwnerEmail string `json:"owner_email"`

	// SiteID is the opaque storage identifier, assigned once at creation.
	// File storage is addressed only by SiteID, never by Domain.
	SiteID uuid.UUID `json:"site_id"`

	// CreatedAt is the timestamp when the site was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last file set replacement.
	// Nil until the site is updated for the first time.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewSite creates a new Site with a freshly generated SiteID.
func NewSite(domain, ownerEmail string) *Site {
	return &Site{
		Domain:     domain,
		OwnerEmail: ownerEmail,
		SiteID:     uuid.New(),
		CreatedAt:  time.Now().UTC(),
	}
}

// IsOwnedBy reports whether email owns the site.
func (s *Site) IsOwnedBy(email string) bool {
	return s.OwnerEmail == email
}

// Touch records a file set replacement.
func (s *Site) Touch() {
	now := time.Now().UTC()
	s.UpdatedAt = &now
}

// SiteStats pairs a site with its view counter.
type SiteStats struct {
	Site  *Site
	Views int64
}
