package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/graphkb/internal/hash"
)

var (
	errUploadAborted  = errors.New("s3: upload aborted")
	contentTypeZipped = aws.String("application/zip")
)

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool

	// LeavePartsOnError keeps the parts of a failed multipart upload.
	// Default: false (abort on error)
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// computeCRC32C returns the checksum in the base64 big-endian form S3 expects.
func computeCRC32C(data []byte) string {
	return hash.Base64(hash.CRC32C(data))
}

// streamingWritableBlob feeds a background manager upload through a pipe.
// Close waits for the upload; Abort cancels it so no object is created.
type streamingWritableBlob struct {
	pw     *io.PipeWriter
	pr     *io.PipeReader
	cancel context.CancelFunc

	done     chan error
	closed   atomic.Bool
	closeErr error
	closeMu  sync.Mutex
}

func newStreamingWritableBlob(ctx context.Context, uploader *manager.Uploader, bucket, key string, enableChecksum bool) *streamingWritableBlob {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	w := &streamingWritableBlob{
		pw:     pw,
		pr:     pr,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: contentTypeZipped,
	}
	if enableChecksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w
}

func (w *streamingWritableBlob) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return w.pw.Write(p)
}

func (w *streamingWritableBlob) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return w.closeErr
	}
	defer w.cancel()

	if err := w.pw.Close(); err != nil {
		w.closeErr = err
		return err
	}
	w.closeErr = <-w.done
	return w.closeErr
}

// Abort stops the upload. The uploader aborts any multipart upload it
// started unless LeavePartsOnError is set.
func (w *streamingWritableBlob) Abort(context.Context) error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = w.pw.CloseWithError(errUploadAborted)
	w.cancel()
	<-w.done
	w.closeErr = errUploadAborted
	return nil
}

// Sync is a no-op; data is only committed on Close.
func (w *streamingWritableBlob) Sync() error {
	return nil
}

func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ContentType:    contentTypeZipped,
		ChecksumCRC32C: aws.String(computeCRC32C(data)),
	})
	return err
}
