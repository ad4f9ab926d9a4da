package s3store

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
)

// fakeS3 keeps objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestBackend_StoreDedupAndRetrieve(t *testing.T) {
	fake := newFakeS3()
	b := NewWithClient(fake, "photos", "avatars/", "https://cdn.example.com/", 0, t.TempDir(), zerolog.Nop())
	ctx := context.Background()
	data := []byte("jpeg bytes")

	ref, err := b.Store(ctx, bytes.NewReader(data), "jpg")
	require.NoError(t, err)
	assert.Equal(t, crypto.ComputeSHA256(data)+".jpg", ref)
	assert.Contains(t, fake.objects, "photos/avatars/"+ref)

	_, err = b.Store(ctx, bytes.NewReader(data), "jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.puts)

	rc, err := b.Retrieve(ctx, ref)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	url, err := b.URL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/"+ref, url)

	_, err = b.Retrieve(ctx, crypto.ComputeSHA256([]byte("missing"))+".jpg")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestBackend_URLWithoutPublicOrPresign(t *testing.T) {
	b := NewWithClient(newFakeS3(), "photos", "", "", 0, t.TempDir(), zerolog.Nop())

	_, err := b.URL(context.Background(), crypto.ComputeSHA256(nil)+".png")
	assert.Error(t, err)
}
