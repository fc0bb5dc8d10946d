package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/graphkb/internal/conv"
)

const (
	// MagicNumber identifies forest index files (bytes "KBF1").
	MagicNumber = 0x3146424B
	// Version is the current file format version.
	Version = 0x00010000

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64

	// NodeWords is the number of uint32 words per encoded tree node.
	NodeWords = 6

	// FlagIncludeSelf marks an index whose item queries may return the item itself.
	FlagIncludeSelf = 1 << 0
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("truncated index file")
	ErrCorrupt        = errors.New("corrupt index file")
)

// FileHeader is the 64-byte header at the start of every index file.
//
// Sections follow the header in this order, each starting on an 8-byte
// boundary: item ids (uint64), vectors (float32, ItemCount*Dimension), tree
// roots (uint32), nodes (NodeWords*uint32 each), split normals (float32,
// NormalCount*Dimension) and leaf slots (uint32).
type FileHeader struct {
	Magic         uint32
	Version       uint32
	Metric        uint8
	Flags         uint8
	Padding1      [2]byte
	Dimension     uint32
	ItemCount     uint64
	TreeCount     uint32
	NodeCount     uint32
	NormalCount   uint32
	LeafSlotCount uint32
	LeafSize      uint32
	Checksum      uint32 // CRC32 of every byte after the header
	Seed          uint64
	Reserved      [8]byte
}

// Layout holds the absolute byte offsets of each section.
type Layout struct {
	IDs       int
	Vectors   int
	Roots     int
	Nodes     int
	Normals   int
	LeafSlots int
	End       int
}

// Layout computes section offsets from the header counts for a file of
// size bytes. Counts whose sections do not fit in size return ErrTruncated.
func (h *FileHeader) Layout(size int) (Layout, error) {
	var l Layout
	if size < HeaderSize {
		return l, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, size)
	}
	limit := uint64(size)
	dim := uint64(h.Dimension)

	sections := []struct {
		name  string
		off   *int
		count uint64
		width uint64
	}{
		{"ids", &l.IDs, h.ItemCount, 8},
		{"vectors", &l.Vectors, h.ItemCount, dim * 4},
		{"roots", &l.Roots, uint64(h.TreeCount), 4},
		{"nodes", &l.Nodes, uint64(h.NodeCount), NodeWords * 4},
		{"normals", &l.Normals, uint64(h.NormalCount), dim * 4},
		{"leaf slots", &l.LeafSlots, uint64(h.LeafSlotCount), 4},
	}

	off := uint64(HeaderSize)
	for _, s := range sections {
		*s.off = int(off)
		n, err := conv.MulUint64(s.count, s.width)
		if err != nil {
			return l, fmt.Errorf("%w: %s: %w", ErrTruncated, s.name, err)
		}
		if n > limit-off {
			return l, fmt.Errorf("%w: %s need %d bytes at %d, have %d", ErrTruncated, s.name, n, off, size)
		}
		off = min(align8(off+n), limit)
	}
	l.End = int(off)
	return l, nil
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// Align8 rounds n up to the next multiple of 8.
func Align8(n int) int {
	return (n + 7) &^ 7
}

func init() {
	if sz := binary.Size(FileHeader{}); sz != HeaderSize {
		panic("graphkb/persistence: FileHeader size drifted")
	}
}
