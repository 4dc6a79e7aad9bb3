package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/pkg/crypto"
)

const (
	releasesDir = "releases"
	currentLink = "current"
)

// manifest describes one immutable release.
type manifest struct {
	CreatedAt time.Time                `json:"created_at"`
	Files     map[string]manifestEntry `json:"files"`
}

type manifestEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Usage summarizes the live release of a site.
type Usage struct {
	Release   string
	Files     int
	Bytes     int64
	UpdatedAt time.Time
}

// FileStore implements SiteFiles on the local filesystem.
// Writers of one site must be serialised by the caller; readers need no
// coordination with writers.
type FileStore struct {
	paths     PathConfig
	logger    zerolog.Logger
	manifests sync.Map // siteID/releaseID -> *manifest

	// beforeWrite is called before each file of a release is written.
	// Tests use it to inject failures.
	beforeWrite func(name string) error
}

// NewFileStore creates a FileStore rooted at paths.BasePath.
func NewFileStore(paths PathConfig, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(paths.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStore{
		paths:  paths,
		logger: logger.With().Str("component", "file_store").Logger(),
	}, nil
}

// Allocate creates empty storage for a new site.
func (s *FileStore) Allocate(ctx context.Context, siteID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(SiteDir(s.paths, siteID), releasesDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.logger.Error().Err(err).Str("site_id", siteID.String()).Msg("failed to allocate site storage")
		return fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}
	return nil
}

// ReplaceFiles stages files as a new release and swaps the current link to it.
func (s *FileStore) ReplaceFiles(ctx context.Context, siteID uuid.UUID, files FileSet) error {
	siteDir := SiteDir(s.paths, siteID)
	releaseID := uuid.NewString()
	stageRel := path.Join(releasesDir, releaseID)
	stageDir := filepath.Join(siteDir, filepath.FromSlash(stageRel))
	manifestPath := stageDir + ".json"

	logger := s.logger.With().Str("site_id", siteID.String()).Str("release", releaseID).Logger()

	swapped := false
	defer func() {
		if swapped {
			return
		}
		if err := os.RemoveAll(stageDir); err != nil {
			logger.Warn().Err(err).Msg("failed to remove staging directory")
		}
		_ = os.Remove(manifestPath)
	}()

	if err := s.stage(ctx, siteDir, stageDir, manifestPath, files); err != nil {
		logger.Error().Err(err).Msg("failed to stage release")
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}

	previous, _ := os.Readlink(filepath.Join(siteDir, currentLink))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	if err := swapLink(siteDir, stageRel, releaseID); err != nil {
		logger.Error().Err(err).Msg("failed to swap release")
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	swapped = true

	if err := syncDir(siteDir); err != nil {
		logger.Warn().Err(err).Msg("failed to sync site directory after swap")
	}

	logger.Info().Int("files", len(files)).Int64("bytes", files.Size()).Msg("release published")

	if previous != "" && previous != stageRel {
		s.removeRelease(siteID, siteDir, previous)
	}
	return nil
}

// stage writes every file plus the manifest and syncs them to disk.
func (s *FileStore) stage(ctx context.Context, siteDir, stageDir, manifestPath string, files FileSet) error {
	if err := os.MkdirAll(filepath.Join(siteDir, releasesDir), 0o750); err != nil {
		return err
	}
	if err := os.Mkdir(stageDir, 0o750); err != nil {
		return err
	}

	m := manifest{
		CreatedAt: time.Now().UTC(),
		Files:     make(map[string]manifestEntry, len(files)),
	}

	for _, name := range files.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}

		cleaned, err := CleanEntryName(name)
		if err != nil {
			return err
		}
		if s.beforeWrite != nil {
			if err := s.beforeWrite(cleaned); err != nil {
				return err
			}
		}

		entry, err := writeFile(filepath.Join(stageDir, filepath.FromSlash(cleaned)), files[name])
		if err != nil {
			return fmt.Errorf("write %s: %w", cleaned, err)
		}
		m.Files[cleaned] = entry
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if _, err := writeFile(manifestPath, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := syncDir(stageDir); err != nil {
		return err
	}
	return syncDir(filepath.Join(siteDir, releasesDir))
}

// writeFile creates name, writes data and fsyncs it.
func writeFile(name string, data []byte) (manifestEntry, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return manifestEntry{}, err
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return manifestEntry{}, err
	}

	w := crypto.NewHashWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		return manifestEntry{}, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return manifestEntry{}, err
	}
	if err := f.Close(); err != nil {
		return manifestEntry{}, err
	}

	return manifestEntry{SHA256: w.SHA256(), Size: w.Size()}, nil
}

// swapLink points siteDir/current at target by renaming a fresh symlink over it.
func swapLink(siteDir, target, releaseID string) error {
	tmp := filepath.Join(siteDir, currentLink+".tmp-"+releaseID)
	if err := os.Symlink(filepath.FromSlash(target), tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(siteDir, currentLink)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// removeRelease deletes a superseded release. Failures only leak disk space.
func (s *FileStore) removeRelease(siteID uuid.UUID, siteDir, target string) {
	releaseID, ok := releaseFromLink(target)
	if !ok {
		s.logger.Warn().Str("site_id", siteID.String()).Str("target", target).Msg("refusing to remove unexpected link target")
		return
	}

	dir := filepath.Join(siteDir, releasesDir, releaseID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("site_id", siteID.String()).Str("release", releaseID).Msg("failed to remove old release")
	}
	_ = os.Remove(dir + ".json")
	s.manifests.Delete(siteID.String() + "/" + releaseID)
}

// releaseFromLink extracts the release ID from a current link target.
func releaseFromLink(target string) (string, bool) {
	dir, releaseID := path.Split(filepath.ToSlash(target))
	if dir != releasesDir+"/" {
		return "", false
	}
	if _, err := uuid.Parse(releaseID); err != nil {
		return "", false
	}
	return releaseID, true
}

// liveRelease returns the release ID the current link points at.
func (s *FileStore) liveRelease(siteDir string) (string, error) {
	target, err := os.Readlink(filepath.Join(siteDir, currentLink))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrFileNotFound
		}
		return "", err
	}

	releaseID, ok := releaseFromLink(target)
	if !ok {
		return "", fmt.Errorf("unexpected current link target %q", target)
	}
	return releaseID, nil
}

// ResolveFile opens the file a request path maps to.
func (s *FileStore) ResolveFile(ctx context.Context, siteID uuid.UUID, requestedPath string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := RequestPath(requestedPath)
	if err != nil {
		return nil, err
	}

	siteDir := SiteDir(s.paths, siteID)

	// A concurrent swap may delete the release between reading the link and
	// opening it; the second attempt sees the new link.
	for attempt := 0; ; attempt++ {
		releaseID, err := s.liveRelease(siteDir)
		if err != nil {
			if errors.Is(err, domain.ErrFileNotFound) {
				return nil, err
			}
			s.logger.Error().Err(err).Str("site_id", siteID.String()).Msg("failed to read live release")
			return nil, err
		}

		root, err := os.OpenRoot(filepath.Join(siteDir, releasesDir, releaseID))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && attempt == 0 {
				continue
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil, domain.ErrFileNotFound
			}
			return nil, err
		}

		file, err := s.openCandidate(root, rel)
		root.Close()
		if err != nil {
			return nil, err
		}

		if m := s.manifest(siteID, siteDir, releaseID); m != nil {
			if entry, ok := m.Files[file.Path]; ok && crypto.ValidateSHA256(entry.SHA256) {
				file.ETag = crypto.ETag(entry.SHA256)
			}
		}
		return file, nil
	}
}

// openCandidate tries rel, then rel/index.html if rel is a directory, then
// the site's index.html.
func (s *FileStore) openCandidate(root *os.Root, rel string) (*File, error) {
	candidates := []string{rel}
	if rel != IndexFile {
		candidates = append(candidates, IndexFile)
	}

	for _, candidate := range candidates {
		file, err := openRegular(root, candidate)
		if err == nil {
			return file, nil
		}
		if errors.Is(err, errIsDir) {
			file, err = openRegular(root, path.Join(candidate, IndexFile))
			if err == nil {
				return file, nil
			}
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, errIsDir) {
			return nil, err
		}
	}

	return nil, domain.NewDomainError(domain.ErrFileNotFound, "no file or index.html", rel)
}

var errIsDir = errors.New("is a directory")

func openRegular(root *os.Root, name string) (*File, error) {
	f, err := root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, errIsDir
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fs.ErrNotExist
	}

	return &File{
		Path:    name,
		Content: f,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// manifest loads and caches a release manifest. Releases are immutable, so
// a cached manifest never goes stale.
func (s *FileStore) manifest(siteID uuid.UUID, siteDir, releaseID string) *manifest {
	key := siteID.String() + "/" + releaseID
	if cached, ok := s.manifests.Load(key); ok {
		return cached.(*manifest)
	}

	data, err := os.ReadFile(filepath.Join(siteDir, releasesDir, releaseID+".json"))
	if err != nil {
		return nil
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn().Err(err).Str("site_id", siteID.String()).Str("release", releaseID).Msg("unreadable manifest")
		return nil
	}

	s.manifests.Store(key, &m)
	return &m
}

// Usage reports the size of a site's live release.
func (s *FileStore) Usage(ctx context.Context, siteID uuid.UUID) (*Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	siteDir := SiteDir(s.paths, siteID)
	releaseID, err := s.liveRelease(siteDir)
	if err != nil {
		return nil, err
	}

	m := s.manifest(siteID, siteDir, releaseID)
	if m == nil {
		return nil, fmt.Errorf("manifest missing for release %s", releaseID)
	}

	usage := &Usage{Release: releaseID, Files: len(m.Files), UpdatedAt: m.CreatedAt}
	for _, entry := range m.Files {
		usage.Bytes += entry.Size
	}
	return usage, nil
}

// Discard removes all storage of a site.
func (s *FileStore) Discard(ctx context.Context, siteID uuid.UUID) error {
	siteDir := SiteDir(s.paths, siteID)
	if err := os.RemoveAll(siteDir); err != nil {
		return fmt.Errorf("failed to discard site storage: %w", err)
	}

	prefix := siteID.String() + "/"
	s.manifests.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			s.manifests.Delete(key)
		}
		return true
	})
	return nil
}

// Ensure FileStore implements SiteFiles.
var _ SiteFiles = (*FileStore)(nil)
