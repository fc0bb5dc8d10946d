// Package render defines how similarity results are handed to an image
// renderer and ships two renderers: one that writes files and one that
// collects images in memory.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Image is one artifact of a similarity result. Rank 0 is the query entity;
// neighbors follow nearest-first starting at 1.
type Image struct {
	Rank  int
	ID    uint64
	Name  string
	Data  []byte
	Title string
}

// Title returns the caption used for an image at rank.
func Title(rank int, id uint64) string {
	if rank == 0 {
		return fmt.Sprintf("query %d", id)
	}
	return fmt.Sprintf("#%d: %d", rank, id)
}

// Renderer presents images to a human.
type Renderer interface {
	Render(ctx context.Context, img Image) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, img Image) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, img Image) error {
	return f(ctx, img)
}

// ErrEmptyImage is returned for images without data.
var ErrEmptyImage = errors.New("render: empty image")

// Dir writes each image to a directory as "<rank>_<id><ext>", keeping the
// extension of the archived file.
type Dir struct {
	path string
}

// NewDir creates the directory when missing.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the output directory.
func (d *Dir) Path() string {
	return d.path
}

// FileName returns the name Render uses for img.
func FileName(img Image) string {
	return fmt.Sprintf("%02d_%d%s", img.Rank, img.ID, filepath.Ext(img.Name))
}

// Render writes the image.
func (d *Dir) Render(ctx context.Context, img Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyImage, img.Name)
	}
	return os.WriteFile(filepath.Join(d.path, FileName(img)), img.Data, 0o644)
}

// Collector keeps rendered images in call order.
type Collector struct {
	mu     sync.Mutex
	images []Image
}

// Render records img.
func (c *Collector) Render(_ context.Context, img Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, img)
	return nil
}

// Images returns the recorded images.
func (c *Collector) Images() []Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Image(nil), c.images...)
}
