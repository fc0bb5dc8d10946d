// Package archive packs a knowledge base into a single zip container and
// reopens it for querying.
//
// A container holds:
//
//	graph.nt.blk    block-compressed N-Triples snapshot of the graph
//	index.kbf       forest index file
//	metadata.json   codec.Record
//	images/<name>   optional image files, stored uncompressed
//
// The index is memory-mapped, so it is extracted into a scratch directory
// next to the container. Archive.Close unmaps the index, then removes the
// scratch directory, then closes the container.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/graph"
	"github.com/hupe1980/graphkb/index/forest"
	"github.com/hupe1980/graphkb/internal/compress"
	"github.com/hupe1980/graphkb/resource"
	"github.com/hupe1980/graphkb/vocab"
)

// Container entry names.
const (
	GraphEntry    = "graph.nt.blk"
	IndexEntry    = "index.kbf"
	MetadataEntry = "metadata.json"
	ImagesPrefix  = vocab.ImageLocation + "/"
)

var (
	// ErrMalformed is returned for containers with missing or undecodable entries.
	ErrMalformed = errors.New("archive: malformed container")
	// ErrScratch is returned when a scratch directory cannot be created or removed.
	ErrScratch = errors.New("archive: scratch directory")
	// ErrOpen wraps failures to open the container file.
	ErrOpen = errors.New("archive: cannot open container")
	// ErrClosed is returned by reads on a closed archive.
	ErrClosed = errors.New("archive: closed")
	// ErrImageNotFound is returned by ReadImage for names not in the container.
	ErrImageNotFound = errors.New("archive: image not found")
)

// WriteRequest holds everything Write packs into a container.
type WriteRequest struct {
	Graph     graph.Store
	Index     *forest.Index
	Metadata  *codec.Record
	ImagesDir string
}

// Archive is an open container with its decoded graph, metadata and loaded
// index.
type Archive struct {
	mu      sync.RWMutex
	closed  bool
	path    string
	zr      *zip.ReadCloser
	images  map[string]*zip.File
	graph   *graph.Memory
	index   *forest.Index
	meta    *codec.Record
	scratch string
	logger  *slog.Logger
}

// Write packs req into outputDir/<name> and returns the container reopened
// for reading. The container is written to a temporary file and renamed into
// place.
func Write(ctx context.Context, outputDir string, req WriteRequest, opts ...Option) (*Archive, error) {
	o := applyOptions(opts)
	if req.Graph == nil || req.Index == nil || req.Metadata == nil {
		return nil, errors.New("archive: graph, index and metadata are required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	start := time.Now()
	scratch, err := newScratch(outputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if scratch != "" {
			_ = removeScratch(scratch)
		}
	}()

	indexPath := filepath.Join(scratch, IndexEntry)
	if err := req.Index.Save(indexPath); err != nil {
		return nil, fmt.Errorf("archive: save index: %w", err)
	}

	var nt bytes.Buffer
	if err := graph.Encode(&nt, req.Graph); err != nil {
		return nil, fmt.Errorf("archive: encode graph: %w", err)
	}
	graphBlock, err := compress.Compress(nt.Bytes(), o.compression)
	if err != nil {
		return nil, fmt.Errorf("archive: compress graph: %w", err)
	}

	rec := *req.Metadata
	rec.GraphCompression = o.compression.String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	meta, err := codec.EncodeRecord(o.codec, &rec)
	if err != nil {
		return nil, err
	}

	containerPath := filepath.Join(outputDir, o.name)
	images, err := writeContainer(ctx, containerPath, o, graphBlock, indexPath, meta, req.ImagesDir)
	if err != nil {
		return nil, err
	}

	if err := removeScratch(scratch); err != nil {
		return nil, err
	}
	scratch = ""

	o.logger.Info("container written",
		"path", containerPath,
		"triples", req.Graph.Len(),
		"items", req.Index.Len(),
		"images", images,
		"duration", time.Since(start))

	return Read(ctx, containerPath, opts...)
}

func writeContainer(ctx context.Context, dst string, o options, graphBlock []byte, indexPath string, meta []byte, imagesDir string) (int, error) {
	f, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := f.Name()
	defer func() {
		_ = f.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(f)
	now := time.Now()

	if err := writeEntry(zw, GraphEntry, zip.Store, now, bytes.NewReader(graphBlock)); err != nil {
		return 0, err
	}

	idx, err := os.Open(indexPath)
	if err != nil {
		return 0, err
	}
	err = writeEntry(zw, IndexEntry, zip.Deflate, now, idx)
	_ = idx.Close()
	if err != nil {
		return 0, err
	}

	if err := writeEntry(zw, MetadataEntry, zip.Deflate, now, bytes.NewReader(meta)); err != nil {
		return 0, err
	}

	var images int
	if imagesDir != "" {
		if images, err = writeImages(ctx, zw, imagesDir, o.controller); err != nil {
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("archive: rename %s: %w", tmpName, err)
	}
	tmpName = ""
	return images, nil
}

func writeEntry(zw *zip.Writer, name string, method uint16, modified time.Time, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("archive: write %s: %w", name, err)
	}
	return nil
}

func writeImages(ctx context.Context, zw *zip.Writer, dir string, rc *resource.Controller) (int, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var n int
	for _, de := range des {
		if !de.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}

		info, err := de.Info()
		if err != nil {
			return n, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     ImagesPrefix + de.Name(),
			Method:   zip.Store,
			Modified: info.ModTime(),
		})
		if err != nil {
			return n, err
		}

		src, err := os.Open(filepath.Join(dir, de.Name()))
		if err != nil {
			return n, err
		}
		_, err = io.Copy(resource.NewRateLimitedWriter(ctx, w, rc), src)
		_ = src.Close()
		if err != nil {
			return n, fmt.Errorf("archive: copy image %s: %w", de.Name(), err)
		}
		n++
	}
	return n, nil
}

// Read opens the container at path, decodes its graph and metadata and loads
// its index from a scratch directory beside the container.
func Read(ctx context.Context, containerPath string, opts ...Option) (*Archive, error) {
	o := applyOptions(opts)
	start := time.Now()

	zr, err := zip.OpenReader(containerPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, containerPath, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, containerPath, err)
	}

	a := &Archive{
		path:   containerPath,
		zr:     zr,
		images: make(map[string]*zip.File),
		logger: o.logger,
	}

	if err := a.load(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}

	o.logger.Info("container opened",
		"path", containerPath,
		"triples", a.graph.Len(),
		"items", a.index.Len(),
		"images", len(a.images),
		"duration", time.Since(start))
	return a, nil
}

func (a *Archive) load(ctx context.Context, o options) error {
	entries := make(map[string]*zip.File, len(a.zr.File))
	for _, f := range a.zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if name, ok := strings.CutPrefix(f.Name, ImagesPrefix); ok && name != "" {
			a.images[name] = f
			continue
		}
		entries[f.Name] = f
	}
	for _, name := range []string{GraphEntry, IndexEntry, MetadataEntry} {
		if entries[name] == nil {
			return fmt.Errorf("%w: missing %s", ErrMalformed, name)
		}
	}

	data, err := readEntry(entries[MetadataEntry])
	if err != nil {
		return err
	}
	meta, err := codec.DecodeRecord(o.codec, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	a.meta = meta

	block, err := readEntry(entries[GraphEntry])
	if err != nil {
		return err
	}
	nt, _, err := compress.Decompress(block)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if a.graph, err = graph.Decode(bytes.NewReader(nt), graph.FormatNTriples); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if a.scratch, err = newScratch(filepath.Dir(a.path)); err != nil {
		return err
	}
	indexPath := filepath.Join(a.scratch, IndexEntry)
	if err := extractEntry(entries[IndexEntry], indexPath); err != nil {
		return err
	}

	indexOpts := append([]forest.Option{forest.WithLogger(o.logger)}, o.indexOpts...)
	if a.index, err = forest.Load(indexPath, meta.VectorLength, meta.Metric, indexOpts...); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if a.index.Dimension() != meta.VectorLength {
		return fmt.Errorf("%w: index dimension %d, metadata vector length %d", ErrMalformed, a.index.Dimension(), meta.VectorLength)
	}
	if meta.ItemCount > 0 && a.index.Len() != meta.ItemCount {
		return fmt.Errorf("%w: index holds %d items, metadata %d", ErrMalformed, a.index.Len(), meta.ItemCount)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, f.Name, err)
	}
	return data, nil
}

func extractEntry(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScratch, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: extract %s: %w", ErrMalformed, f.Name, err)
	}
	return out.Close()
}

// Path returns the container path.
func (a *Archive) Path() string { return a.path }

// Graph returns the decoded graph.
func (a *Archive) Graph() *graph.Memory { return a.graph }

// Index returns the loaded index.
func (a *Archive) Index() *forest.Index { return a.index }

// Metadata returns the metadata record.
func (a *Archive) Metadata() *codec.Record { return a.meta }

// ScratchDir returns the directory holding the extracted index, or "" once
// the archive is closed.
func (a *Archive) ScratchDir() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scratch
}

// Images returns the image names in the container, sorted.
func (a *Archive) Images() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.images))
	for n := range a.images {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Entries returns every entry name in container order.
func (a *Archive) Entries() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	names := make([]string, len(a.zr.File))
	for i, f := range a.zr.File {
		names[i] = f.Name
	}
	return names
}

// ImageSize returns the uncompressed size of an image entry.
func (a *Archive) ImageSize(name string) (int64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.images[path.Base(name)]
	if !ok {
		return 0, false
	}
	return int64(f.UncompressedSize64), true
}

// ReadImage returns the bytes of images/<name>.
func (a *Archive) ReadImage(name string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}
	f, ok := a.images[path.Base(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	return readEntry(f)
}

// Close releases the archive: the index is unmapped first, then the scratch
// directory is removed, then the container is closed. Close is idempotent.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var firstErr error
	if a.index != nil {
		if err := a.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := removeScratch(a.scratch); err != nil && firstErr == nil {
		firstErr = err
	}
	a.scratch = ""
	if a.zr != nil {
		if err := a.zr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		a.logger.Warn("container close failed", "path", a.path, "error", firstErr)
	} else {
		a.logger.Debug("container closed", "path", a.path)
	}
	return firstErr
}
