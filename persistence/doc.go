// Package persistence defines the on-disk layout of forest index files.
//
// Files are little-endian and laid out so that every section can be viewed
// in place from a read-only memory mapping: a 64-byte FileHeader followed by
// 8-byte aligned sections. The body is covered by a CRC32 stored in the
// header. Only little-endian amd64 and arm64 hosts are supported; the check
// runs at package init.
package persistence
