package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SiteEntry is a site directory found on disk.
type SiteEntry struct {
	SiteID uuid.UUID

	// ModTime is the last change of the site directory itself, which moves
	// whenever a release is swapped in.
	ModTime time.Time
}

// ListSites returns every site directory under the base path. Entries that
// are not laid out the way SiteDir names them are skipped.
func (s *FileStore) ListSites(ctx context.Context) ([]SiteEntry, error) {
	pattern := s.paths.BasePath
	for i := 0; i <= s.paths.ShardLevels; i++ {
		pattern = filepath.Join(pattern, "*")
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	entries := make([]SiteEntry, 0, len(matches))
	for _, dir := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		siteID, err := uuid.Parse(filepath.Base(dir))
		if err != nil || filepath.Clean(SiteDir(s.paths, siteID)) != filepath.Clean(dir) {
			continue
		}

		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		entries = append(entries, SiteEntry{SiteID: siteID, ModTime: info.ModTime()})
	}
	return entries, nil
}
