package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/hupe1980/graphkb/resource"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the range size Fetch requests per read.
const DefaultChunkSize = 8 << 20

// Aborter is implemented by writable blobs that can discard a partial upload.
type Aborter interface {
	Abort(ctx context.Context) error
}

type transferOptions struct {
	chunkSize   int64
	concurrency int
	rc          *resource.Controller
	logger      *slog.Logger
}

// TransferOption configures Publish and Fetch.
type TransferOption func(*transferOptions)

// WithChunkSize sets the range size used by Fetch.
func WithChunkSize(n int64) TransferOption {
	return func(o *transferOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithConcurrency bounds the number of concurrent range reads in Fetch.
func WithConcurrency(n int) TransferOption {
	return func(o *transferOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithResourceController throttles transfers with the controller's IO limit.
func WithResourceController(rc *resource.Controller) TransferOption {
	return func(o *transferOptions) {
		o.rc = rc
	}
}

// WithLogger sets the transfer logger.
func WithLogger(l *slog.Logger) TransferOption {
	return func(o *transferOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyTransferOptions(opts []TransferOption) transferOptions {
	o := transferOptions{
		chunkSize:   DefaultChunkSize,
		concurrency: 4,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Publish streams the local file at localPath into store under name and
// returns the number of bytes written. A failed upload is aborted when the
// blob supports it.
func Publish(ctx context.Context, store BlobStore, name, localPath string, opts ...TransferOption) (int64, error) {
	o := applyTransferOptions(opts)

	f, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("blobstore: create %s: %w", name, err)
	}

	n, err := io.Copy(w, resource.NewRateLimitedReader(ctx, f, o.rc))
	if err != nil {
		if a, ok := w.(Aborter); ok {
			_ = a.Abort(context.WithoutCancel(ctx))
		} else {
			_ = w.Close()
		}
		return n, fmt.Errorf("blobstore: upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("blobstore: commit %s: %w", name, err)
	}

	o.logger.Info("published blob", "name", name, "bytes", n)
	return n, nil
}

// Fetch downloads the blob name into dir and returns the local path. The
// path mirrors the blob name below dir, so blobs with the same base name do
// not collide.
//
// A cached file is reused only when the blob implements Versioned and its
// version matches the one recorded at download time. Ranges are read
// concurrently and written in place; the file appears atomically.
func Fetch(ctx context.Context, store BlobStore, name, dir string, opts ...TransferOption) (string, error) {
	o := applyTransferOptions(opts)

	dst, err := cachePath(dir, name)
	if err != nil {
		return "", err
	}
	versionPath := dst + versionSuffix

	b, err := store.Open(ctx, name)
	if err != nil {
		return "", fmt.Errorf("blobstore: open %s: %w", name, err)
	}
	defer b.Close()

	size := b.Size()
	version := blobVersion(b)
	if cached(dst, versionPath, size, version) {
		o.logger.Debug("blob cached", "name", name, "path", dst, "version", version)
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Truncate(size); err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for off := int64(0); off < size; off += o.chunkSize {
		length := min(o.chunkSize, size-off)
		g.Go(func() error {
			return fetchRange(gctx, b, tmp, off, length, o.rc)
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("blobstore: download %s: %w", name, err)
	}

	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Remove(versionPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", err
	}
	tmpName = ""
	if version != "" {
		if err := os.WriteFile(versionPath, []byte(version), 0o644); err != nil {
			return "", err
		}
	}

	o.logger.Info("fetched blob", "name", name, "path", dst, "bytes", size)
	return dst, nil
}

const versionSuffix = ".version"

func cachePath(dir, name string) (string, error) {
	rel := filepath.FromSlash(path.Clean(name))
	if rel == "." || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("blobstore: invalid blob name %q", name)
	}
	return filepath.Join(dir, rel), nil
}

func blobVersion(b Blob) string {
	if v, ok := b.(Versioned); ok {
		return v.Version()
	}
	return ""
}

func cached(dst, versionPath string, size int64, version string) bool {
	if version == "" {
		return false
	}
	fi, err := os.Stat(dst)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() != size {
		return false
	}
	recorded, err := os.ReadFile(versionPath)
	return err == nil && string(recorded) == version
}

func fetchRange(ctx context.Context, b Blob, w io.WriterAt, off, length int64, rc *resource.Controller) error {
	r, err := b.ReadRange(ctx, off, length)
	if err != nil {
		return err
	}
	defer r.Close()

	buf := make([]byte, length)
	n, err := io.ReadFull(resource.NewRateLimitedReader(ctx, r, rc), buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if int64(n) != length {
		return fmt.Errorf("short range read at %d: got %d of %d bytes", off, n, length)
	}
	_, err = w.WriteAt(buf, off)
	return err
}
