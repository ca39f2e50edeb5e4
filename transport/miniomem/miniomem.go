// Package miniomem serves a remote-memory image stored in a MinIO (or any
// S3-compatible) bucket via the MinIO client. Like s3mem it is read-only;
// each read is a ranged object GET.
package miniomem

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/remotemem/transport"
)

// Image is a read-only transport.Transport over a single object.
type Image struct {
	client *minio.Client
	bucket string
	key    string
	size   uint64
}

var _ transport.Transport = (*Image)(nil)

// Open stats the object and returns a transport over it. A missing object
// or bucket maps to transport.ErrNotFound.
func Open(ctx context.Context, client *minio.Client, bucket, key string) (*Image, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("miniomem: %s/%s: %w", bucket, key, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("miniomem: stat %s/%s: %w", bucket, key, err)
	}
	return &Image{
		client: client,
		bucket: bucket,
		key:    key,
		size:   uint64(info.Size),
	}, nil
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
		return nil, fmt.Errorf("miniomem: read [%#x, %#x) beyond object size %#x: %w",
			addr, end, i.size, transport.ErrOutOfBounds)
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(int64(addr), int64(end-1)); err != nil {
		return nil, fmt.Errorf("miniomem: set range: %w", err)
	}
	obj, err := i.client.GetObject(ctx, i.bucket, i.key, opts)
	if err != nil {
		return nil, fmt.Errorf("miniomem: get %s/%s: %w", i.bucket, i.key, err)
	}
	defer obj.Close()

	data := make([]byte, count)
	if _, err := io.ReadFull(obj, data); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("miniomem: %s/%s: %w", i.bucket, i.key, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("miniomem: read body: %w", err)
	}
	return data, nil
}

// WriteBytes always fails; the image is read-only.
func (i *Image) WriteBytes(_ context.Context, _ uint64, _ []byte) error {
	return fmt.Errorf("miniomem: %w", transport.ErrReadOnly)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.Code == "NotFound"
}
