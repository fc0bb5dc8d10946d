// Package mmap provides read-only memory-mapped file access.
//
// The vector index is served straight from its file through a Mapping. A
// Mapping is an owned resource: callers must Close it before deleting the
// file or the directory containing it, because platforms with mandatory file
// locking (Windows) refuse to remove mapped files.
//
//	m, err := mmap.Open("index.kbf")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix uses mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping/MapViewOfFile.
package mmap
