package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/graphkb/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ContentType is attached to uploaded containers.
const ContentType = "application/zip"

var errUploadAborted = errors.New("minio: upload aborted")

// Config describes a MinIO endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all keys (e.g. "kb/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// Dial creates a client for cfg and wraps it in a Store.
func Dial(cfg Config, bucket, rootPrefix string) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect %s: %w", cfg.Endpoint, err)
	}
	return NewStore(client, bucket, rootPrefix), nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open stats the object and returns a range-reading blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("minio: %s: %w", key, blobstore.ErrNotFound)
		}
		return nil, err
	}

	return &blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
		etag:   info.ETag,
	}, nil
}

// Put writes a blob atomically.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType})
	return err
}

// Create starts a streaming upload that completes on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	key := s.key(name)
	pr, pw := io.Pipe()

	w := &writableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, minio.PutObjectOptions{ContentType: ContentType})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Delete removes a blob. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns all blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

type blob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
	etag   string
}

func (b *blob) Size() int64 {
	return b.size
}

// Version returns the object ETag.
func (b *blob) Version() string {
	return b.etag
}

func (b *blob) get(ctx context.Context, off, length int64) (*minio.Object, int64, error) {
	if off < 0 || off >= b.size {
		return nil, 0, io.EOF
	}
	end := min(off+length, b.size) - 1
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, 0, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, 0, err
	}
	return obj, end - off + 1, nil
}

func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	obj, n, err := b.get(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	read, err := io.ReadFull(obj, p[:n])
	if err != nil {
		return read, err
	}
	if int(n) < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	obj, _, err := b.get(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (b *blob) Close() error {
	return nil
}

type writableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (w *writableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *writableBlob) Close() error {
	if !w.finished.CompareAndSwap(false, true) {
		return errors.New("minio: blob already closed")
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

// Abort cancels the upload; the object is not created.
func (w *writableBlob) Abort(context.Context) error {
	if !w.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = w.pw.CloseWithError(errUploadAborted)
	err := <-w.done
	if err != nil && !errors.Is(err, errUploadAborted) {
		return err
	}
	return nil
}

func (w *writableBlob) Sync() error {
	return nil
}
