package graphkb

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/graphkb/archive"
	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/graph"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/internal/compress"
	"github.com/hupe1980/graphkb/persistence"
	"github.com/hupe1980/graphkb/vecfile"
)

var (
	// ErrNotFound is returned when an entity, embedding link or image is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrClosed is returned by operations on a closed knowledge base.
	ErrClosed = errors.New("knowledge base is closed")
)

// InputError reports unusable caller input: a missing or unreadable
// directory, a malformed vector or graph file, inconsistent vector lengths or
// a malformed container.
type InputError struct {
	Op   string
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: invalid input: %v", e.Op, e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ResourceError reports a failure to acquire or release a local resource such
// as a scratch directory, the container file or a memory mapping.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: resource error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: resource error: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ErrDimensionMismatch indicates a vector length mismatch.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDistanceType indicates a metric that does not match the index.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidDistanceType struct {
	Metric distance.Metric
	cause  error
}

func (e *ErrInvalidDistanceType) Error() string {
	return fmt.Sprintf("invalid distance type: %s", e.Metric)
}

func (e *ErrInvalidDistanceType) Unwrap() error { return e.cause }

// translateError maps errors of the building blocks onto the package
// taxonomy. op and path describe the failed operation.
func translateError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var ie *InputError
	var re *ResourceError
	if errors.As(err, &ie) || errors.As(err, &re) {
		return err
	}

	switch {
	case errors.Is(err, index.ErrInvalidK):
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	case errors.Is(err, index.ErrClosed), errors.Is(err, archive.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, archive.ErrImageNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var nf *index.ErrItemNotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &InputError{Op: op, Path: path, Err: &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}}
	}
	var dt *index.ErrInvalidDistanceType
	if errors.As(err, &dt) {
		return &InputError{Op: op, Path: path, Err: &ErrInvalidDistanceType{Metric: dt.Metric, cause: err}}
	}

	switch {
	case errors.Is(err, archive.ErrScratch), errors.Is(err, archive.ErrOpen):
		return &ResourceError{Op: op, Path: path, Err: err}
	case errors.Is(err, archive.ErrMalformed),
		errors.Is(err, codec.ErrInvalidRecord),
		errors.Is(err, persistence.ErrCorrupt),
		errors.Is(err, persistence.ErrInvalidMagic),
		errors.Is(err, persistence.ErrInvalidVersion),
		errors.Is(err, persistence.ErrTruncated),
		persistence.IsChecksumMismatch(err),
		errors.Is(err, compress.ErrCorruptBlock),
		errors.Is(err, vecfile.ErrUnsupported),
		errors.Is(err, vecfile.ErrMalformed),
		errors.Is(err, graph.ErrUnknownFormat),
		errors.Is(err, index.ErrEmpty),
		errors.Is(err, fs.ErrNotExist):
		return &InputError{Op: op, Path: path, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &ResourceError{Op: op, Path: path, Err: err}
	}

	return err
}
