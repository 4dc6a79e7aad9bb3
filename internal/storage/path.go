package storage

import (
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/justdev-chris/PawNetwork/internal/domain"
)

// IndexFile is served for directory requests and as the missing-file fallback.
const IndexFile = "index.html"

// PathConfig holds configuration for site directory layout.
type PathConfig struct {
	// BasePath is the root directory for site storage.
	BasePath string

	// ShardLevels is the number of directory levels for sharding.
	// Default: 2 (e.g., /ab/cd/abcdef...)
	ShardLevels int

	// ShardWidth is the number of characters per shard level.
	// Default: 2 (e.g., ab, cd)
	ShardWidth int
}

// DefaultPathConfig returns the default path configuration.
func DefaultPathConfig(basePath string) PathConfig {
	return PathConfig{
		BasePath:    basePath,
		ShardLevels: 2,
		ShardWidth:  2,
	}
}

// SiteDir returns the storage directory of a site.
// Uses directory sharding on the site ID to distribute sites across directories.
//
// Example with default config (2 levels, 2 chars each):
//
//	siteID: "3f2a9c1e-..."
//	basePath: "/data"
//	result: "/data/3f/2a/3f2a9c1e-..."
func SiteDir(config PathConfig, siteID uuid.UUID) string {
	id := siteID.String()

	components := make([]string, 0, config.ShardLevels+2)
	components = append(components, config.BasePath)

	offset := 0
	for i := 0; i < config.ShardLevels; i++ {
		components = append(components, id[offset:offset+config.ShardWidth])
		offset += config.ShardWidth
	}

	components = append(components, id)
	return filepath.Join(components...)
}

// CleanEntryName normalizes the name of an uploaded file or archive entry
// into a site-relative slash path. Names that are empty, absolute, contain
// backslashes or NUL, or have any ".." segment are rejected with
// domain.ErrInvalidPath.
func CleanEntryName(name string) (string, error) {
	if name == "" || !utf8.ValidString(name) || strings.ContainsAny(name, "\\\x00") {
		return "", domain.NewDomainError(domain.ErrInvalidPath, "unsupported characters", name)
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || hasVolume(name) {
		return "", domain.NewDomainError(domain.ErrInvalidPath, "absolute path", name)
	}

	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return "", domain.NewDomainError(domain.ErrInvalidPath, "path escapes site root", name)
		}
	}

	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", domain.NewDomainError(domain.ErrInvalidPath, "empty path", name)
	}

	return cleaned, nil
}

// RequestPath maps a URL path onto a site-relative file path.
// The leading slash of the URL is the site root. Any ".." segment,
// backslash, NUL or a second leading slash is rejected with
// domain.ErrInvalidPath.
func RequestPath(requested string) (string, error) {
	if requested == "" || requested == "/" {
		return IndexFile, nil
	}

	if !utf8.ValidString(requested) || strings.ContainsAny(requested, "\\\x00") {
		return "", domain.NewDomainError(domain.ErrInvalidPath, "unsupported characters", requested)
	}

	rel := strings.TrimPrefix(requested, "/")
	if strings.HasPrefix(rel, "/") || hasVolume(rel) {
		return "", domain.NewDomainError(domain.ErrInvalidPath, "absolute path", requested)
	}

	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", domain.NewDomainError(domain.ErrInvalidPath, "path escapes site root", requested)
		}
	}

	dirRequest := strings.HasSuffix(rel, "/")
	rel = path.Clean(rel)
	if rel == "." {
		return IndexFile, nil
	}
	if dirRequest {
		return path.Join(rel, IndexFile), nil
	}
	return rel, nil
}

// hasVolume reports a Windows drive prefix such as "C:".
func hasVolume(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
