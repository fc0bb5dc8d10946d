package forest

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/graphkb/distance"
)

// Defaults for forest construction.
const (
	DefaultTrees    = 10
	DefaultSeed     = 42
	DefaultLeafSize = 32
)

// Options contains configuration options for the forest index.
type Options struct {
	// Trees is the number of random projection trees. More trees give better
	// recall at the cost of build time and file size.
	Trees int

	// Metric is the distance used to order neighbors.
	Metric distance.Metric

	// Seed fixes the random splits; tree t uses Seed+t.
	Seed uint64

	// LeafSize is the maximum number of items in a leaf.
	LeafSize int

	// SearchK is the number of candidates inspected per query.
	// Zero means k * Trees.
	SearchK int

	// IncludeSelf lets NeighborsByID return the queried item itself.
	IncludeSelf bool

	// Workers bounds the parallelism of vector loading and tree building.
	Workers int

	// Logger receives build and load diagnostics.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the forest index.
var DefaultOptions = Options{
	Trees:    DefaultTrees,
	Metric:   distance.MetricAngular,
	Seed:     DefaultSeed,
	LeafSize: DefaultLeafSize,
}

// Option mutates Options.
type Option func(o *Options)

// WithTrees sets the number of trees.
func WithTrees(n int) Option {
	return func(o *Options) {
		o.Trees = n
	}
}

// WithMetric sets the distance metric.
func WithMetric(m distance.Metric) Option {
	return func(o *Options) {
		o.Metric = m
	}
}

// WithSeed sets the base seed of the random splits.
func WithSeed(seed uint64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithLeafSize sets the maximum leaf size.
func WithLeafSize(n int) Option {
	return func(o *Options) {
		o.LeafSize = n
	}
}

// WithSearchK sets the per-query candidate budget.
func WithSearchK(n int) Option {
	return func(o *Options) {
		o.SearchK = n
	}
}

// WithIncludeSelf allows item queries to return the queried item.
func WithIncludeSelf(include bool) Option {
	return func(o *Options) {
		o.IncludeSelf = include
	}
}

// WithWorkers bounds build parallelism.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func applyOptions(opts []Option) Options {
	o := DefaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.Trees <= 0 {
		o.Trees = DefaultTrees
	}
	if o.LeafSize <= 1 {
		o.LeafSize = DefaultLeafSize
	}
	if o.SearchK < 0 {
		o.SearchK = 0
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
