package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// BinaryIndexWriter writes index sections in little-endian binary form and
// tracks the number of bytes written so sections can be padded.
type BinaryIndexWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
	written   int
}

// NewBinaryIndexWriter creates a new binary writer.
func NewBinaryIndexWriter(w io.Writer) *BinaryIndexWriter {
	return &BinaryIndexWriter{
		w:         w,
		byteOrder: binary.LittleEndian,
	}
}

// Written returns the number of bytes written so far.
func (bw *BinaryIndexWriter) Written() int {
	return bw.written
}

func (bw *BinaryIndexWriter) write(p []byte) error {
	n, err := bw.w.Write(p)
	bw.written += n
	return err
}

// WriteHeader stamps magic and version and writes the file header.
func (bw *BinaryIndexWriter) WriteHeader(header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	if err := binary.Write(bw.w, bw.byteOrder, header); err != nil {
		return err
	}
	bw.written += HeaderSize
	return nil
}

// WriteFloat32Slice writes a float32 slice as raw bytes.
func (bw *BinaryIndexWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}
	return bw.write(unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4))
}

// WriteUint32Slice writes a uint32 slice as raw bytes.
func (bw *BinaryIndexWriter) WriteUint32Slice(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}
	if err := validateUint32SliceAlignment(slice); err != nil {
		return err
	}
	return bw.write(unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*4))
}

// WriteUint64Slice writes a uint64 slice as raw bytes.
func (bw *BinaryIndexWriter) WriteUint64Slice(slice []uint64) error {
	if len(slice) == 0 {
		return nil
	}
	if err := validateUint64SliceAlignment(slice); err != nil {
		return err
	}
	return bw.write(unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8))
}

var zeroPad [8]byte

// Pad writes zero bytes until the absolute offset (header included) is a
// multiple of 8.
func (bw *BinaryIndexWriter) Pad() error {
	if n := Align8(bw.written) - bw.written; n > 0 {
		return bw.write(zeroPad[:n])
	}
	return nil
}

// BodyChecksum runs writeBody against a discarding writer positioned right
// after the header and returns the CRC32 of everything it wrote.
func BodyChecksum(writeBody func(*BinaryIndexWriter) error) (uint32, error) {
	cw := NewChecksumWriter(io.Discard)
	bw := NewBinaryIndexWriter(cw)
	bw.written = HeaderSize
	if err := writeBody(bw); err != nil {
		return 0, err
	}
	return cw.Sum(), nil
}

// SaveToFile writes through a temp file in the same directory and renames it
// into place.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("persistence: rename %s: %w", tmpName, err)
	}

	tmpName = ""
	return nil
}
