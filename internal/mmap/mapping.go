package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// Mapping is a read-only memory-mapped file.
//
// The mapping pins the file: on platforms with mandatory locking the file (and
// its directory) cannot be removed until Close has been called.
type Mapping struct {
	path   string
	data   []byte
	size   int
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path into memory.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{path: path}, nil
	}

	data, unmapFunc, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{
		path:  path,
		data:  data,
		size:  int(size),
		unmap: unmapFunc,
	}, nil
}

// Path returns the path of the mapped file.
func (m *Mapping) Path() string {
	return m.path
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		data := m.data
		m.data = nil
		return m.unmap(data)
	}
	return nil
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}

// Bytes returns the mapped bytes.
// The slice is valid only until Close is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
