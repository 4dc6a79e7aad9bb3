// Package crypto provides password hashing and content digests for PawNetwork.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// HashWriter wraps an io.Writer and computes a SHA-256 digest of everything
// written through it, so a file can be stored and fingerprinted in one pass.
type HashWriter struct {
	writer io.Writer
	sha256 hash.Hash
	size   int64
}

// NewHashWriter creates a new HashWriter around w.
func NewHashWriter(w io.Writer) *HashWriter {
	return &HashWriter{
		writer: w,
		sha256: sha256.New(),
	}
}

// Write implements io.Writer and updates the digest with the bytes accepted by w.
func (h *HashWriter) Write(p []byte) (int, error) {
	n, err := h.writer.Write(p)
	if n > 0 {
		h.sha256.Write(p[:n])
		h.size += int64(n)
	}
	return n, err
}

// SHA256 returns the hex-encoded SHA-256 hash.
// Should only be called after writing is complete.
func (h *HashWriter) SHA256() string {
	return hex.EncodeToString(h.sha256.Sum(nil))
}

// Size returns the total number of bytes written.
func (h *HashWriter) Size() int64 {
	return h.size
}

// ETag formats a SHA-256 hex digest as a strong HTTP entity tag.
func ETag(sha256Hex string) string {
	return fmt.Sprintf("\"%s\"", sha256Hex)
}

// ValidateSHA256 validates that a string is a valid SHA-256 hex hash.
func ValidateSHA256(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
