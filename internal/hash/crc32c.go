// Package hash computes CRC32-Castagnoli checksums of uploaded containers.
package hash

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Base64 encodes sum big-endian in base64, the form object stores expect in
// checksum headers.
func Base64(sum uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], sum)
	return base64.StdEncoding.EncodeToString(b[:])
}
