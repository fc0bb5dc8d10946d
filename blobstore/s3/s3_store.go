package s3

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/graphkb/blobstore"
)

// Store implements blobstore.BlobStore for S3.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	upload   UploadConfig
	uploader *manager.Uploader
}

// Option configures a Store.
type Option func(*Store)

// WithUploadConfig overrides DefaultUploadConfig.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(s *Store) {
		s.upload = cfg
	}
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "kb/").
func NewStore(client Client, bucket, rootPrefix string, opts ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
		upload: DefaultUploadConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.uploader = newUploader(client, s.upload)
	return s
}

// New loads the default AWS configuration (environment, shared config,
// instance role) and returns a Store for bucket.
func New(ctx context.Context, bucket, rootPrefix, region string, opts ...Option) (*Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix, opts...), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open heads the object and returns a range-reading blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return openBlob(ctx, s.client, s.bucket, s.key(name))
}

// Put uploads data in a single request with a CRC32C checksum when enabled.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	if s.upload.EnableChecksum {
		return putWithChecksum(ctx, s.client, s.bucket, key, data)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   contentTypeZipped,
	})
	return err
}

// Create starts a streaming (multipart when large) upload that completes on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return newStreamingWritableBlob(ctx, s.uploader, s.bucket, s.key(name), s.upload.EnableChecksum), nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// List returns all blob names below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return listObjects(ctx, s.client, s.bucket, s.key(prefix), s.prefix)
}
