package service

import (
	"errors"

	"github.com/justdev-chris/PawNetwork/internal/archive"
	"github.com/justdev-chris/PawNetwork/internal/domain"
	"github.com/justdev-chris/PawNetwork/internal/storage"
)

// ArchiveField is the form field whose upload is unpacked as a zip archive.
const ArchiveField = "zip"

// UploadedFile is one file part of a multipart upload.
type UploadedFile struct {
	// FieldName is the form field the file was sent under.
	FieldName string

	// FileName is the original file name sent by the client.
	FileName string

	// Data is the file content.
	Data []byte
}

// IsArchive reports whether the upload is a zip archive to unpack.
func (u UploadedFile) IsArchive() bool {
	return u.FieldName == ArchiveField
}

// ingest turns uploads into one file set. Archives are unpacked, other
// files are stored under their original name. Later uploads win on
// conflicting paths. Nothing is written here, so a rejected upload never
// touches site storage.
func (s *TenantService) ingest(uploads []UploadedFile) (storage.FileSet, error) {
	files := make(storage.FileSet)

	for _, u := range uploads {
		if u.IsArchive() {
			extracted, err := archive.Extract(u.Data, s.remainingBudget(files))
			if err != nil {
				if errors.Is(err, archive.ErrTooLarge) {
					return nil, domain.NewDomainError(domain.ErrMalformedArchive, "archive exceeds the upload limit", u.FileName)
				}
				return nil, err
			}
			files.Merge(extracted)
			continue
		}

		if err := files.Add(u.FileName, u.Data); err != nil {
			return nil, err
		}
	}

	if limit := s.config.MaxSiteBytes; limit > 0 && files.Size() > limit {
		return nil, domain.NewDomainError(domain.ErrMalformedArchive, "upload exceeds the size limit", "")
	}

	return files, nil
}

func (s *TenantService) remainingBudget(files storage.FileSet) int64 {
	limit := s.config.MaxSiteBytes
	if limit <= 0 {
		return 0
	}
	left := limit - files.Size()
	if left <= 0 {
		// Extract treats zero as unlimited.
		return 1
	}
	return left
}
