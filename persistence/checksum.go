package persistence

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// CRC32 (IEEE) detects accidental corruption of index files. It is not a
// tamper check.

// CRC32Table is the IEEE polynomial table for checksum computation.
var CRC32Table = crc32.MakeTable(crc32.IEEE)

// CalculateChecksum calculates the CRC32 checksum of data.
func CalculateChecksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ChecksumWriter wraps an io.Writer and computes a running CRC32 checksum.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc32.New(CRC32Table),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Sum returns the current checksum value.
func (cw *ChecksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

// VerifyChecksum compares the checksum of data with expected.
func VerifyChecksum(data []byte, expected uint32) error {
	if actual := CalculateChecksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is (or wraps) a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
