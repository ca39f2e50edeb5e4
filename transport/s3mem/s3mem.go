// Package s3mem serves a remote-memory image stored as an S3 object.
// Reads become ranged GETs; the object is never modified, so the
// transport is read-only. Useful for firmware images, crash dumps, and
// memory snapshots published to a bucket.
package s3mem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/remotemem/transport"
)

// Client is the subset of the S3 API the transport uses. *s3.Client
// satisfies it.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Image is a read-only transport.Transport over a single S3 object.
type Image struct {
	client Client
	bucket string
	key    string
	size   uint64
}

var _ transport.Transport = (*Image)(nil)

// Open stats the object and returns a transport over it. A missing object
// or bucket maps to transport.ErrNotFound.
func Open(ctx context.Context, client Client, bucket, key string) (*Image, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3mem: %s/%s: %w", bucket, key, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("s3mem: head %s/%s: %w", bucket, key, err)
	}
	return &Image{
		client: client,
		bucket: bucket,
		key:    key,
		size:   uint64(aws.ToInt64(head.ContentLength)),
	}, nil
}

// OpenDefault opens an image using the ambient AWS configuration
// (environment, shared config, instance role).
func OpenDefault(ctx context.Context, bucket, key string) (*Image, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3mem: load aws config: %w", err)
	}
	return Open(ctx, s3.NewFromConfig(cfg), bucket, key)
}

// Size returns the object's length in bytes.
func (i *Image) Size() uint64 {
	return i.size
}

// ReadBytes fetches count bytes at addr with a ranged GET.
func (i *Image) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	if count == 0 {
		return nil, nil
	}
	end := addr + uint64(count)
	if end > i.size {
		return nil, fmt.Errorf("s3mem: read [%#x, %#x) beyond object size %#x: %w",
			addr, end, i.size, transport.ErrOutOfBounds)
	}

	out, err := i.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(i.bucket),
		Key:    aws.String(i.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", addr, end-1)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3mem: %s/%s: %w", i.bucket, i.key, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("s3mem: get %s/%s: %w", i.bucket, i.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3mem: read body: %w", err)
	}
	if len(data) != count {
		return nil, fmt.Errorf("s3mem: ranged get returned %d bytes, want %d", len(data), count)
	}
	return data, nil
}

// WriteBytes always fails; the image is read-only.
func (i *Image) WriteBytes(_ context.Context, _ uint64, _ []byte) error {
	return fmt.Errorf("s3mem: %w", transport.ErrReadOnly)
}

// Upload stores a memory image as an S3 object, using multipart upload
// for large images. It is the companion to Open for producing snapshots.
func Upload(ctx context.Context, client manager.UploadAPIClient, bucket, key string, r io.Reader) error {
	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return fmt.Errorf("s3mem: upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &noSuchBucket)
}
