// Package index defines the contract of an approximate nearest neighbor index
// over fixed-dimension vectors keyed by integer id.
package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/graphkb/distance"
)

var (
	// ErrInvalidK is returned when a query asks for k <= 0 neighbors.
	ErrInvalidK = errors.New("k must be greater than 0")
	// ErrClosed is returned by queries on a closed index.
	ErrClosed = errors.New("index is closed")
	// ErrEmpty is returned when building an index without any vectors.
	ErrEmpty = errors.New("no vectors to index")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
	ID       uint64
	HasID    bool
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	if e.HasID {
		return fmt.Sprintf("dimension mismatch for item %d: expected %d, got %d", e.ID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrItemNotFound is returned when querying an id that is not indexed.
type ErrItemNotFound struct {
	ID uint64
}

func (e *ErrItemNotFound) Error() string {
	return fmt.Sprintf("item %d not found in index", e.ID)
}

// ErrInvalidDistanceType is returned for unsupported or mismatched metrics.
type ErrInvalidDistanceType struct {
	Metric distance.Metric
}

func (e *ErrInvalidDistanceType) Error() string {
	return fmt.Sprintf("invalid distance type: %s", e.Metric)
}

// SearchResult is a neighbor and its distance to the query.
type SearchResult struct {
	// ID is the identifier of the search result.
	ID uint64

	// Distance is the distance between the query vector and the result vector.
	Distance float32
}

// Index is a build-once, query-many nearest neighbor index.
type Index interface {
	// NeighborsByID returns up to k ids nearest to the stored item id,
	// nearest first.
	NeighborsByID(id uint64, k int) ([]uint64, error)

	// Neighbors returns up to k items nearest to vector, nearest first.
	Neighbors(vector []float32, k int) ([]SearchResult, error)

	// Vector returns the stored vector of id.
	Vector(id uint64) ([]float32, error)

	// Contains reports whether id is indexed.
	Contains(id uint64) bool

	// Len returns the number of indexed items.
	Len() int

	// Dimension returns the vector length.
	Dimension() int

	// Metric returns the distance metric.
	Metric() distance.Metric

	// Close releases resources held by the index.
	Close() error
}
