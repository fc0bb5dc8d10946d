package graphkb

import (
	"cmp"
	"log/slog"

	"github.com/hupe1980/graphkb/archive"
	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index/forest"
	"github.com/hupe1980/graphkb/internal/compress"
	"github.com/hupe1980/graphkb/resource"
)

// DefaultK is the neighbor count used by callers that do not choose one.
const DefaultK = 10

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller

	trees       int
	metric      distance.Metric
	seed        uint64
	leafSize    int
	searchK     int
	includeSelf bool
	workers     int

	containerName string
	compression   compress.Algorithm
	cacheDir      string
}

// Option configures Ingest, Open and OpenBlob.
type Option func(*options)

// WithCodec configures the codec used for the metadata record.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithTrees sets the number of random projection trees built by Ingest.
// More trees raise recall and build time.
func WithTrees(n int) Option {
	return func(o *options) {
		o.trees = n
	}
}

// WithMetric sets the distance metric used by Ingest.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithSeed sets the seed of the first tree; tree t uses seed+t.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithLeafSize sets the maximum number of items in a tree leaf.
func WithLeafSize(n int) Option {
	return func(o *options) {
		o.leafSize = n
	}
}

// WithSearchK sets the candidate budget of a query. Zero means k * trees.
func WithSearchK(n int) Option {
	return func(o *options) {
		o.searchK = n
	}
}

// WithIncludeSelf keeps the query id in similarity results.
func WithIncludeSelf(include bool) Option {
	return func(o *options) {
		o.includeSelf = include
	}
}

// WithWorkers bounds the parallelism of vector loading and tree building.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithContainerName sets the file name of the container written by Ingest.
func WithContainerName(name string) Option {
	return func(o *options) {
		o.containerName = name
	}
}

// WithGraphCompression sets the compression of the graph entry.
func WithGraphCompression(a compress.Algorithm) Option {
	return func(o *options) {
		o.compression = a
	}
}

// WithCacheDir sets the directory OpenBlob downloads containers into.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithResourceController bounds IO bandwidth, image fetch concurrency and
// image memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is a shortcut for a text logger at level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		trees:            forest.DefaultTrees,
		metric:           distance.MetricAngular,
		seed:             forest.DefaultSeed,
		leafSize:         forest.DefaultLeafSize,
		containerName:    archive.DefaultName,
		compression:      compress.AlgorithmLZ4,
		cacheDir:         ".graphkb-cache",
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

const defaultImageWorkers = 4

// imageWorkers bounds concurrent image loads. Unset workers default to 4.
func (o *options) imageWorkers() int {
	return cmp.Or(max(o.workers, 0), defaultImageWorkers)
}

func (o *options) forestOptions() []forest.Option {
	return []forest.Option{
		forest.WithTrees(o.trees),
		forest.WithMetric(o.metric),
		forest.WithSeed(o.seed),
		forest.WithLeafSize(o.leafSize),
		forest.WithSearchK(o.searchK),
		forest.WithIncludeSelf(o.includeSelf),
		forest.WithWorkers(o.workers),
		forest.WithLogger(o.logger.Logger),
	}
}

func (o *options) archiveOptions() []archive.Option {
	return []archive.Option{
		archive.WithName(o.containerName),
		archive.WithGraphCompression(o.compression),
		archive.WithCodec(o.codec),
		archive.WithLogger(o.logger.Logger),
		archive.WithResourceController(o.controller),
		archive.WithIndexOptions(o.forestOptions()...),
	}
}
