// Package s3store implements storage.Backend on an S3-compatible object store.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/config"
	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
	"github.com/prn-tf/skillswap/internal/storage"
)

// Client is the subset of the S3 API the backend uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Backend stores blobs as objects keyed by prefix + reference.
type Backend struct {
	client    Client
	presign   *s3.PresignClient
	bucket    string
	prefix    string
	publicURL string
	urlTTL    time.Duration
	tempDir   string
	logger    zerolog.Logger
}

// New builds an S3 client from cfg and returns a backend over it.
func New(ctx context.Context, cfg config.S3StorageConfig, tempDir string, logger zerolog.Logger) (*Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	b := NewWithClient(client, cfg.Bucket, cfg.Prefix, cfg.PublicURL, cfg.PresignTTL, tempDir, logger)
	b.presign = s3.NewPresignClient(client)
	return b, nil
}

// NewWithClient creates a backend over an existing client. Without a
// presign client, URL requires publicURL.
func NewWithClient(client Client, bucket, prefix, publicURL string, urlTTL time.Duration, tempDir string, logger zerolog.Logger) *Backend {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Backend{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		urlTTL:    urlTTL,
		tempDir:   tempDir,
		logger:    logger.With().Str("component", "s3-storage").Logger(),
	}
}

func (b *Backend) key(ref string) string {
	return b.prefix + ref
}

// Store spools content to a temp file while hashing it, then uploads it
// unless an object with the same reference already exists.
func (b *Backend) Store(ctx context.Context, reader io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp(b.tempDir, "s3-upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hr := crypto.NewHashReader(reader)
	if _, err := io.Copy(tmp, hr); err != nil {
		return "", fmt.Errorf("failed to spool blob: %w", err)
	}

	ref := storage.MakeRef(hr.SHA256(), ext)

	exists, err := b.Exists(ctx, ref)
	if err != nil {
		return "", err
	}
	if exists {
		return ref, nil
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind temp file: %w", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(ref)),
		Body:          tmp,
		ContentLength: aws.Int64(hr.Size()),
		ContentType:   aws.String(contentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	b.logger.Debug().Str("ref", ref).Int64("size", hr.Size()).Msg("blob uploaded")
	return ref, nil
}

// Retrieve streams an object.
func (b *Backend) Retrieve(ctx context.Context, ref string) (io.ReadCloser, error) {
	if _, _, err := storage.ParseRef(ref); err != nil {
		return nil, domain.ErrBlobNotFound
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(ref)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return out.Body, nil
}

// Exists checks for an object with HEAD.
func (b *Backend) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(ref)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head blob: %w", err)
	}
	return true, nil
}

// URL returns publicURL/key when configured, otherwise a presigned GET URL.
func (b *Backend) URL(ctx context.Context, ref string) (string, error) {
	if b.publicURL != "" {
		return b.publicURL + "/" + b.key(ref), nil
	}
	if b.presign == nil {
		return "", errors.New("s3 backend has neither a public URL nor a presign client")
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(ref)),
	}, s3.WithPresignExpires(b.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign blob URL: %w", err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func contentType(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Ensure Backend implements storage.Backend.
var _ storage.Backend = (*Backend)(nil)
