package archive

import (
	"log/slog"

	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/index/forest"
	"github.com/hupe1980/graphkb/internal/compress"
	"github.com/hupe1980/graphkb/resource"
)

// DefaultName is the file name of a container written by Write.
const DefaultName = "kb.ttlplus"

type options struct {
	name        string
	compression compress.Algorithm
	codec       codec.Codec
	logger      *slog.Logger
	controller  *resource.Controller
	indexOpts   []forest.Option
}

// Option configures Write and Read.
type Option func(*options)

// WithName sets the container file name used by Write.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithGraphCompression sets the block compression of the graph entry.
func WithGraphCompression(a compress.Algorithm) Option {
	return func(o *options) {
		o.compression = a
	}
}

// WithCodec sets the metadata codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResourceController throttles image copies with rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithIndexOptions passes options to forest.Load when reading.
func WithIndexOptions(opts ...forest.Option) Option {
	return func(o *options) {
		o.indexOpts = append(o.indexOpts, opts...)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		name:        DefaultName,
		compression: compress.AlgorithmLZ4,
		codec:       codec.Default,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
