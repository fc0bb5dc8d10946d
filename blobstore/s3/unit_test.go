package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/graphkb/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) call(method string, ctx context.Context, in any) (any, error) {
	args := m.MethodCalled(method, ctx, in)
	return args.Get(0), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	out, err := m.call("HeadObject", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.HeadObjectOutput), err
}

func (m *MockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	out, err := m.call("GetObject", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.GetObjectOutput), err
}

func (m *MockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	out, err := m.call("PutObject", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.PutObjectOutput), err
}

func (m *MockS3Client) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	out, err := m.call("DeleteObject", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.DeleteObjectOutput), err
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out, err := m.call("ListObjectsV2", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.ListObjectsV2Output), err
}

func (m *MockS3Client) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	out, err := m.call("UploadPart", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.UploadPartOutput), err
}

func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	out, err := m.call("CreateMultipartUpload", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.CreateMultipartUploadOutput), err
}

func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	out, err := m.call("CompleteMultipartUpload", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.CompleteMultipartUploadOutput), err
}

func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	out, err := m.call("AbortMultipartUpload", ctx, in)
	if out == nil {
		return nil, err
	}
	return out.(*s3.AbortMultipartUploadOutput), err
}

func TestStore_Open(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/foo"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(context.Background(), "foo")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/bar"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(100),
			ETag:          aws.String(`"9b2cf535f27731c974343645a3985328"`),
		}, nil).Once()

		b, err := store.Open(context.Background(), "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(100), b.Size())

		v, ok := b.(blobstore.Versioned)
		require.True(t, ok)
		assert.Equal(t, `"9b2cf535f27731c974343645a3985328"`, v.Version())
	})
}

func TestStore_Delete(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	assert.NoError(t, store.Delete(context.Background(), "del"))
	mockClient.AssertExpectations(t)
}

func TestStore_List(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix/")

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "test-bucket" && *input.Prefix == "prefix"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("prefix/kb.ttlplus")},
			{Key: aws.String("prefix/archive/kb-1.ttlplus")},
		},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/kb-1.ttlplus", "kb.ttlplus"}, keys)
}

func TestStore_List_Pagination(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix/")

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("prefix/1")}},
	}, nil).Once()

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken != nil && *input.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("prefix/2")}},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keys)
}

func TestBlob_ReadAt(t *testing.T) {
	mockClient := new(MockS3Client)
	b := &blob{client: mockClient, bucket: "b", key: "k", size: 10}

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "b" && *input.Key == "k" && *input.Range == "bytes=0-4"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("hello")),
	}, nil).Once()

	buf := make([]byte, 5)
	n, err := b.ReadAt(context.Background(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Range == "bytes=8-9"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("ld")),
	}, nil).Once()

	n, err = b.ReadAt(context.Background(), buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	_, err = b.ReadAt(context.Background(), buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBlob_ReadRange(t *testing.T) {
	mockClient := new(MockS3Client)
	b := &blob{client: mockClient, bucket: "b", key: "k", size: 10}

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "b" && *input.Key == "k" && *input.Range == "bytes=2-6"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("llo W")),
	}, nil).Once()

	r, err := b.ReadRange(context.Background(), 2, 5)
	require.NoError(t, err)
	defer r.Close()

	buf, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "llo W", string(buf))
}

func TestStore_Put(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "prefix/kb.ttlplus" &&
			aws.ToString(input.ChecksumCRC32C) == computeCRC32C([]byte("content"))
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "kb.ttlplus", []byte("content")))
	mockClient.AssertExpectations(t)
}

func TestStore_Create(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	var uploaded []byte
	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/new"
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	wb, err := store.Create(context.Background(), "new")
	require.NoError(t, err)

	_, err = wb.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())
	assert.Equal(t, "content", string(uploaded))
}

func TestStore_CreateAbort(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	wb, err := store.Create(context.Background(), "new")
	require.NoError(t, err)
	_, err = wb.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, wb.(blobstore.Aborter).Abort(context.Background()))
	mockClient.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestComputeCRC32C(t *testing.T) {
	// RFC 3720 check value for "123456789" is 0xE3069283.
	assert.Equal(t, "4waSgw==", computeCRC32C([]byte("123456789")))
}
