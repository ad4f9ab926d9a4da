package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/prn-tf/skillswap/internal/domain"
)

// DefaultAllowedPhotoExtensions lists the accepted profile photo extensions.
var DefaultAllowedPhotoExtensions = []string{"png", "jpg", "jpeg", "gif"}

// DefaultMaxPhotoSize caps profile photo uploads at 5 MiB.
const DefaultMaxPhotoSize int64 = 5 << 20

// photoContentTypes maps extensions to the type http.DetectContentType
// reports for their content. Allowed extensions missing here only need to
// sniff as some image.
var photoContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// sniffLen is how many leading bytes http.DetectContentType inspects.
const sniffLen = 512

// PhotoStore validates profile photo uploads and persists them in a Backend.
type PhotoStore struct {
	backend Backend
	allowed map[string]bool
	maxSize int64
}

// NewPhotoStore creates a PhotoStore. Empty allowed or non-positive maxSize
// select the defaults.
func NewPhotoStore(backend Backend, allowed []string, maxSize int64) *PhotoStore {
	if len(allowed) == 0 {
		allowed = DefaultAllowedPhotoExtensions
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxPhotoSize
	}

	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &PhotoStore{backend: backend, allowed: set, maxSize: maxSize}
}

// Extension returns the lowercase extension of filename if it is allowed.
func (s *PhotoStore) Extension(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || !s.allowed[ext] {
		return "", domain.ErrRejectedType
	}
	return ext, nil
}

// Save validates the upload and stores it, returning the blob reference.
// The filename extension must be allowed, the leading bytes must sniff as the
// image type that extension names, and the body must not exceed the size limit.
func (s *PhotoStore) Save(ctx context.Context, upload *domain.PhotoUpload) (string, error) {
	ext, err := s.Extension(upload.Filename)
	if err != nil {
		return "", err
	}
	if upload.Size > s.maxSize {
		return "", domain.ErrPhotoTooLarge
	}

	br := bufio.NewReaderSize(upload.Content, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	if len(head) == 0 || !matchesExtension(http.DetectContentType(head), ext) {
		return "", domain.ErrRejectedType
	}

	limited := &limitedReader{r: br, remaining: s.maxSize}
	ref, err := s.backend.Store(ctx, limited, ext)
	if err != nil {
		if limited.exceeded {
			return "", domain.ErrPhotoTooLarge
		}
		return "", err
	}
	return ref, nil
}

func matchesExtension(sniffed, ext string) bool {
	if want, ok := photoContentTypes[ext]; ok {
		return sniffed == want
	}
	return strings.HasPrefix(sniffed, "image/")
}

// URL returns the public address of a stored photo, or "" for an empty ref.
// References that are not blob refs were supplied by clients as URLs and are
// returned unchanged.
func (s *PhotoStore) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if _, _, err := ParseRef(ref); err != nil {
		return ref, nil
	}
	return s.backend.URL(ctx, ref)
}

// Open streams a stored photo.
func (s *PhotoStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if _, _, err := ParseRef(ref); err != nil {
		return nil, domain.ErrBlobNotFound
	}
	return s.backend.Retrieve(ctx, ref)
}

// errTooLarge aborts a Store once the limit is crossed.
var errTooLarge = errors.New("upload exceeds size limit")

// limitedReader fails instead of truncating once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return 0, errTooLarge
	}
	return n, err
}
