// Package filesystem implements storage.Backend on the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
	"github.com/prn-tf/skillswap/internal/storage"
)

// Backend stores blobs under a sharded directory tree.
type Backend struct {
	paths     storage.PathConfig
	tempDir   string
	urlPrefix string
	logger    zerolog.Logger
}

// New creates a filesystem backend rooted at dataDir. Blob URLs are urlPrefix
// followed by the reference.
func New(dataDir, tempDir, urlPrefix string, logger zerolog.Logger) (*Backend, error) {
	if tempDir == "" {
		tempDir = filepath.Join(dataDir, ".tmp")
	}
	for _, dir := range []string{dataDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return &Backend{
		paths:     storage.DefaultPathConfig(dataDir),
		tempDir:   tempDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/") + "/",
		logger:    logger.With().Str("component", "filesystem-storage").Logger(),
	}, nil
}

// Store writes content to a temp file while hashing it, then moves it into place.
func (b *Backend) Store(ctx context.Context, reader io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp(b.tempDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hr := crypto.NewHashReader(reader)
	if _, err := io.Copy(tmp, hr); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := storage.MakeRef(hr.SHA256(), ext)
	finalPath := storage.ComputePath(b.paths, ref)

	exists, err := b.Exists(ctx, ref)
	if err != nil {
		return "", err
	}
	if exists {
		b.logger.Debug().Str("ref", ref).Msg("blob already stored")
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("failed to move blob into place: %w", err)
	}

	b.logger.Debug().Str("ref", ref).Int64("size", hr.Size()).Msg("blob stored")
	return ref, nil
}

func (b *Backend) path(ref string) (string, error) {
	if _, _, err := storage.ParseRef(ref); err != nil {
		return "", err
	}
	return storage.ComputePath(b.paths, ref), nil
}

// Retrieve opens a stored blob.
func (b *Backend) Retrieve(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := b.path(ref)
	if err != nil {
		return nil, domain.ErrBlobNotFound
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Exists checks if a blob is stored.
func (b *Backend) Exists(ctx context.Context, ref string) (bool, error) {
	p, err := b.path(ref)
	if err != nil {
		return false, nil
	}

	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

// URL returns the URL prefix joined with the reference.
func (b *Backend) URL(ctx context.Context, ref string) (string, error) {
	return b.urlPrefix + ref, nil
}

// Ensure Backend implements storage.Backend.
var _ storage.Backend = (*Backend)(nil)
