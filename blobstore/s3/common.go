package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/graphkb/blobstore"
)

// Client is the subset of the S3 API used by Store. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// blob reads an object with HTTP range requests.
type blob struct {
	client Client
	bucket string
	key    string
	size   int64
	etag   string
}

// Version returns the object ETag.
func (b *blob) Version() string {
	return b.etag
}

func (b *blob) Close() error {
	return nil
}

func (b *blob) Size() int64 {
	return b.size
}

func (b *blob) get(ctx context.Context, off, length int64) (io.ReadCloser, int64, error) {
	if off < 0 || off >= b.size {
		return nil, 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	end := min(off+length, b.size) - 1

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, end - off + 1, nil
}

// ReadAt reads len(p) bytes starting at offset off.
func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	body, n, err := b.get(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	read, err := io.ReadFull(body, p[:n])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return read, io.EOF
		}
		return read, err
	}
	if int(n) < len(p) {
		return read, io.EOF
	}
	return read, nil
}

// ReadRange returns a reader for a range of bytes.
func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	body, _, err := b.get(ctx, off, length)
	return body, err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func openBlob(ctx context.Context, client Client, bucket, key string) (*blob, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: %s: %w", key, blobstore.ErrNotFound)
		}
		return nil, err
	}

	return &blob{
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
		etag:   aws.ToString(head.ETag),
	}, nil
}

func listObjects(ctx context.Context, client Client, bucket, fullPrefix, rootPrefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), rootPrefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel != "" {
				keys = append(keys, rel)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}
