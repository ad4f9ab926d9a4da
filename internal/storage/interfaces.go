// Package storage defines interfaces for blob storage backends.
// Blobs are content-addressed: a stored blob is named by the SHA-256 of its
// bytes plus a file extension, so identical uploads share one object.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/prn-tf/skillswap/internal/pkg/crypto"
)

// ErrInvalidRef indicates a blob reference that is not "<sha256>.<ext>".
var ErrInvalidRef = errors.New("invalid blob reference")

// Backend defines the interface for storage backends.
// Implementations include the local filesystem and S3-compatible object stores.
type Backend interface {
	// Store stores content from a reader and returns its reference.
	// The reference is the SHA-256 hash of the content followed by ext
	// (for example "ab12...ef.png"). Storing identical content twice is a no-op.
	Store(ctx context.Context, reader io.Reader, ext string) (ref string, err error)

	// Retrieve retrieves content by reference.
	// Returns a ReadCloser that must be closed after use, or
	// domain.ErrBlobNotFound if the blob does not exist.
	Retrieve(ctx context.Context, ref string) (io.ReadCloser, error)

	// Exists checks if content with the given reference exists.
	Exists(ctx context.Context, ref string) (bool, error)

	// URL returns the address clients use to fetch the blob.
	URL(ctx context.Context, ref string) (string, error)
}

// MakeRef builds a reference from a content hash and an extension without
// its leading dot.
func MakeRef(contentHash, ext string) string {
	return contentHash + "." + ext
}

// ParseRef splits a reference into its content hash and extension.
func ParseRef(ref string) (contentHash, ext string, err error) {
	contentHash, ext, ok := strings.Cut(ref, ".")
	if !ok || !crypto.ValidateSHA256(contentHash) || ext == "" || strings.ContainsAny(ext, `./\`) {
		return "", "", ErrInvalidRef
	}
	return contentHash, ext, nil
}
