package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"
)

// SliceReader provides bounds-checked reads from a byte slice.
// The forest loader uses it to build zero-copy views into a mapped file.
type SliceReader struct {
	b   []byte
	off int
}

// NewSliceReader creates a reader positioned at the start of b.
func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b, off: 0}
}

// Offset returns the current read offset.
func (r *SliceReader) Offset() int {
	if r == nil {
		return 0
	}
	return r.off
}

// Seek moves the read offset to an absolute position.
func (r *SliceReader) Seek(off int) error {
	if off < 0 || off > len(r.b) {
		return fmt.Errorf("%w: seek to %d, len=%d", ErrTruncated, off, len(r.b))
	}
	r.off = off
	return nil
}

// ReadBytes returns the next n bytes without copying.
func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("%w: %d bytes at %d, len=%d", ErrTruncated, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// checkCount rejects n values of width bytes that do not fit in the
// remaining data, before n*width can overflow.
func (r *SliceReader) checkCount(n, width int) error {
	if n < 0 || n > (len(r.b)-r.off)/width {
		return fmt.Errorf("%w: %d values of %d bytes at %d, len=%d", ErrTruncated, n, width, r.off, len(r.b))
	}
	return nil
}

// ReadFileHeader decodes and validates the file header.
func (r *SliceReader) ReadFileHeader() (*FileHeader, error) {
	b, err := r.ReadBytes(HeaderSize)
	if err != nil {
		return nil, err
	}
	var h FileHeader
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	return &h, nil
}

// ReadFloat32SliceView returns a view of n float32 values backed by the slice.
func (r *SliceReader) ReadFloat32SliceView(n int) ([]float32, error) {
	if err := r.checkCount(n, 4); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	bb, err := r.ReadBytes(n * 4)
	if err != nil {
		return nil, err
	}
	if uintptr(unsafe.Pointer(&bb[0]))%4 != 0 {
		return nil, fmt.Errorf("%w: float32 view at offset %d", ErrUnalignedAccess, r.off-n*4)
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&bb[0])), n), nil
}

// ReadUint32SliceView returns a view of n uint32 values backed by the slice.
func (r *SliceReader) ReadUint32SliceView(n int) ([]uint32, error) {
	if err := r.checkCount(n, 4); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	bb, err := r.ReadBytes(n * 4)
	if err != nil {
		return nil, err
	}
	if uintptr(unsafe.Pointer(&bb[0]))%4 != 0 {
		return nil, fmt.Errorf("%w: uint32 view at offset %d", ErrUnalignedAccess, r.off-n*4)
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&bb[0])), n), nil
}

// ReadUint64SliceView returns a view of n uint64 values backed by the slice.
func (r *SliceReader) ReadUint64SliceView(n int) ([]uint64, error) {
	if err := r.checkCount(n, 8); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	bb, err := r.ReadBytes(n * 8)
	if err != nil {
		return nil, err
	}
	if uintptr(unsafe.Pointer(&bb[0]))%8 != 0 {
		return nil, fmt.Errorf("%w: uint64 view at offset %d", ErrUnalignedAccess, r.off-n*8)
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&bb[0])), n), nil
}
