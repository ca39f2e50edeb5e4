package s3mem

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/remotemem/transport"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestOpen(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		mockClient := new(MockClient)
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "bucket" && *input.Key == "missing.img"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := Open(context.Background(), mockClient, "bucket", "missing.img")
		assert.ErrorIs(t, err, transport.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient := new(MockClient)
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "bucket" && *input.Key == "mem.img"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(256),
		}, nil).Once()

		img, err := Open(context.Background(), mockClient, "bucket", "mem.img")
		require.NoError(t, err)
		assert.Equal(t, uint64(256), img.Size())
	})
}

func TestReadBytes(t *testing.T) {
	mockClient := new(MockClient)
	img := &Image{client: mockClient, bucket: "b", key: "k", size: 256}

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "b" && *input.Key == "k" && *input.Range == "bytes=16-19"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader([]byte{1, 2, 3, 4})),
	}, nil).Once()

	data, err := img.ReadBytes(context.Background(), 16, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
	mockClient.AssertExpectations(t)
}

func TestReadBytesOutOfBounds(t *testing.T) {
	img := &Image{client: new(MockClient), bucket: "b", key: "k", size: 64}

	_, err := img.ReadBytes(context.Background(), 60, 10)
	assert.ErrorIs(t, err, transport.ErrOutOfBounds)
}

func TestWriteBytesReadOnly(t *testing.T) {
	img := &Image{client: new(MockClient), bucket: "b", key: "k", size: 64}

	err := img.WriteBytes(context.Background(), 0, []byte{1})
	assert.ErrorIs(t, err, transport.ErrReadOnly)
}
