package graphkb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordIngest is called after each ingest run. items is the number of
	// indexed vectors.
	RecordIngest(items int, duration time.Duration, err error)

	// RecordOpen is called after a container has been opened (or failed to).
	RecordOpen(duration time.Duration, err error)

	// RecordQuery is called after each similarity query. results is the
	// number of ids returned; a query for an unknown entity reports zero
	// results and a nil error.
	RecordQuery(k, results int, duration time.Duration, err error)

	// RecordImages is called after images of a result were handed to a
	// renderer. skipped counts ids without a usable image.
	RecordImages(rendered, skipped int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordOpen(time.Duration, error)            {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordImages(int, int, time.Duration)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IngestCount      atomic.Int64
	IngestErrors     atomic.Int64
	IngestItems      atomic.Int64
	OpenCount        atomic.Int64
	OpenErrors       atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryEmpty       atomic.Int64
	QueryTotalNanos  atomic.Int64
	ImagesRendered   atomic.Int64
	ImagesSkipped    atomic.Int64
	ImagesTotalNanos atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(items int, _ time.Duration, err error) {
	b.IngestCount.Add(1)
	if err != nil {
		b.IngestErrors.Add(1)
		return
	}
	b.IngestItems.Add(int64(items))
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(_ time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ int, results int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.QueryErrors.Add(1)
	case results == 0:
		b.QueryEmpty.Add(1)
	}
}

// RecordImages implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImages(rendered, skipped int, duration time.Duration) {
	b.ImagesRendered.Add(int64(rendered))
	b.ImagesSkipped.Add(int64(skipped))
	b.ImagesTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IngestCount:    b.IngestCount.Load(),
		IngestErrors:   b.IngestErrors.Load(),
		IngestItems:    b.IngestItems.Load(),
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryEmpty:     b.QueryEmpty.Load(),
		QueryAvgNanos:  b.getAvgQueryNanos(),
		ImagesRendered: b.ImagesRendered.Load(),
		ImagesSkipped:  b.ImagesSkipped.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IngestCount    int64
	IngestErrors   int64
	IngestItems    int64
	OpenCount      int64
	OpenErrors     int64
	QueryCount     int64
	QueryErrors    int64
	QueryEmpty     int64
	QueryAvgNanos  int64
	ImagesRendered int64
	ImagesSkipped  int64
}
