// Package archive turns uploaded zip archives into site file sets.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// ErrTooLarge indicates the archive expands beyond the allowed size.
var ErrTooLarge = errors.New("archive too large")

// Extract decodes a zip archive into a FileSet. Directory entries are
// skipped. Every entry name is checked before any content is read, and a
// single name that escapes the site root rejects the whole archive.
// maxBytes bounds the total uncompressed size; zero means no limit.
func Extract(data []byte, maxBytes int64) (storage.FileSet, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrMalformedArchive, err.Error(), "")
	}

	entries := make([]*zip.File, 0, len(reader.File))
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !f.Mode().IsRegular() {
			return nil, domain.NewDomainError(domain.ErrMalformedArchive, "unsupported entry type", f.Name)
		}

		name, err := storage.CleanEntryName(f.Name)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrMalformedArchive, "entry escapes site root", f.Name)
		}
		entries = append(entries, f)
		names = append(names, name)
	}

	files := make(storage.FileSet, len(entries))
	var total int64
	for i, f := range entries {
		content, err := readEntry(f, remaining(maxBytes, total))
		if err != nil {
			return nil, err
		}
		total += int64(len(content))
		files[names[i]] = content
	}

	return files, nil
}

// remaining returns the byte budget left, or -1 for unlimited.
func remaining(maxBytes, used int64) int64 {
	if maxBytes <= 0 {
		return -1
	}
	return maxBytes - used
}

func readEntry(f *zip.File, budget int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrMalformedArchive, err.Error(), f.Name)
	}
	defer rc.Close()

	var r io.Reader = rc
	if budget >= 0 {
		r = io.LimitReader(rc, budget+1)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrMalformedArchive, err.Error(), f.Name)
	}
	if budget >= 0 && int64(len(content)) > budget {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return content, nil
}
