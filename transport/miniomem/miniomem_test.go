package miniomem

import (
	"bytes"
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/remotemem/transport"
)

// TestImage_Integration requires a running MinIO instance.
// Skip if not available.
func TestImage_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-remotemem"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	_, err = client.ListBuckets(ctx)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		require.NoError(t, err)
	}

	// Upload a small memory image: byte i holds the value i.
	image := make([]byte, 256)
	for i := range image {
		image[i] = byte(i)
	}
	_, err = client.PutObject(ctx, bucket, "mem.img",
		bytes.NewReader(image), int64(len(image)), minio.PutObjectOptions{})
	require.NoError(t, err)

	img, err := Open(ctx, client, bucket, "mem.img")
	require.NoError(t, err)
	require.Equal(t, uint64(256), img.Size())

	data, err := img.ReadBytes(ctx, 40, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{40, 41, 42, 43}, data)

	_, err = img.ReadBytes(ctx, 250, 10)
	assert.ErrorIs(t, err, transport.ErrOutOfBounds)

	err = img.WriteBytes(ctx, 0, []byte{1})
	assert.ErrorIs(t, err, transport.ErrReadOnly)

	// Missing objects map to ErrNotFound.
	_, err = Open(ctx, client, bucket, "no-such-image")
	assert.ErrorIs(t, err, transport.ErrNotFound)
}
