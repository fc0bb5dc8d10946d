package persistence

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"
)

var (
	// ErrUnsupportedArchitecture is returned on CPU architectures other than amd64 and arm64.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture: only amd64 and arm64 are supported")

	// ErrBigEndian is returned on big-endian systems.
	ErrBigEndian = errors.New("big-endian systems are not supported")

	// ErrUnalignedAccess is returned when a slice view would be misaligned.
	ErrUnalignedAccess = errors.New("unaligned memory access detected")
)

func init() {
	if err := validatePlatform(); err != nil {
		panic(fmt.Sprintf("graphkb/persistence: %v", err))
	}
}

func validatePlatform() error {
	if arch := runtime.GOARCH; arch != "amd64" && arch != "arm64" {
		return fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, arch)
	}
	var probe uint16 = 0x0001
	if *(*byte)(unsafe.Pointer(&probe)) != 1 {
		return ErrBigEndian
	}
	return nil
}

func checkAligned(ptr unsafe.Pointer, align uintptr, kind string) error {
	if p := uintptr(ptr); p%align != 0 {
		return fmt.Errorf("%w: %s slice at address 0x%x", ErrUnalignedAccess, kind, p)
	}
	return nil
}

func validateFloat32SliceAlignment(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	return checkAligned(unsafe.Pointer(&vec[0]), 4, "float32")
}

func validateUint32SliceAlignment(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}
	return checkAligned(unsafe.Pointer(&slice[0]), 4, "uint32")
}

func validateUint64SliceAlignment(slice []uint64) error {
	if len(slice) == 0 {
		return nil
	}
	return checkAligned(unsafe.Pointer(&slice[0]), 8, "uint64")
}
