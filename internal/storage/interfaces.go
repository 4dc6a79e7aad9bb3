// Package storage defines site file storage.
// Each site's files live in a directory addressed only by the site's opaque
// ID. A site directory holds immutable releases and a "current" symlink that
// names the live release, so replacing a site's files is a single rename.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// SiteFiles defines the interface for site file storage backends.
type SiteFiles interface {
	// Allocate creates empty storage for a new site.
	// Returns domain.ErrAllocationFailed if the directory cannot be created.
	Allocate(ctx context.Context, siteID uuid.UUID) error

	// ReplaceFiles atomically replaces every file of the site with files.
	// Readers observe either the old set or the new set, never a mix, and on
	// failure the old set is left untouched.
	// Returns domain.ErrWriteFailed on failure.
	ReplaceFiles(ctx context.Context, siteID uuid.UUID, files FileSet) error

	// ResolveFile opens the file a request path maps to.
	// "" and "/" map to index.html, a trailing "/" maps to the directory's
	// index.html, and a missing file falls back to the site's index.html.
	// Returns domain.ErrInvalidPath for paths that could escape the site and
	// domain.ErrFileNotFound when nothing can be served.
	ResolveFile(ctx context.Context, siteID uuid.UUID, requestedPath string) (*File, error)

	// Discard removes all storage of a site. Discarding unknown sites is a no-op.
	Discard(ctx context.Context, siteID uuid.UUID) error
}

// File is an open site file ready to be served. The caller must close Content.
type File struct {
	// Path is the site-relative path that was resolved.
	Path string

	// Content is the file body.
	Content io.ReadSeekCloser

	// Size is the file size in bytes.
	Size int64

	// ModTime is when the release containing the file was written.
	ModTime time.Time

	// ETag is the quoted SHA-256 of the content, empty if unknown.
	ETag string
}
