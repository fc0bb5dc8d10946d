// Package config loads the YAML configuration of the graphkb command.
//
// Values are layered: Default, then a YAML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/graphkb"
	"github.com/hupe1980/graphkb/archive"
	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index/forest"
	"github.com/hupe1980/graphkb/internal/compress"
	"github.com/hupe1980/graphkb/resource"
)

// Config is the complete configuration.
type Config struct {
	Index     IndexConfig    `yaml:"index"`
	Archive   ArchiveConfig  `yaml:"archive"`
	Resources ResourceConfig `yaml:"resources"`
	Store     StoreConfig    `yaml:"store"`
	Log       LogConfig      `yaml:"log"`
	Ingest    IngestConfig   `yaml:"ingest"`
}

// IndexConfig configures the random projection forest.
type IndexConfig struct {
	Trees    int    `yaml:"trees"`
	Metric   string `yaml:"metric"`
	Seed     uint64 `yaml:"seed"`
	LeafSize int    `yaml:"leaf_size"`

	// SearchK is the candidate budget of a query (0 = k * trees).
	SearchK     int  `yaml:"search_k"`
	IncludeSelf bool `yaml:"include_self"`
	Workers     int  `yaml:"workers"`
}

// ArchiveConfig configures the container.
type ArchiveConfig struct {
	Name             string `yaml:"name"`
	GraphCompression string `yaml:"graph_compression"`
	CacheDir         string `yaml:"cache_dir"`
}

// ResourceConfig bounds image loading and transfers.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	MaxWorkers         int64 `yaml:"max_workers"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// StoreConfig selects and configures the blob store used by publish and
// fetch.
type StoreConfig struct {
	// Backend is one of local, minio or s3.
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`

	// Root is the directory of the local backend.
	Root  string      `yaml:"root"`
	MinIO MinIOConfig `yaml:"minio"`
	S3    S3Config    `yaml:"s3"`
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Secure    bool   `yaml:"secure"`
}

// S3Config holds AWS S3 settings. Credentials come from the default AWS
// chain.
type S3Config struct {
	Region string `yaml:"region"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IngestConfig holds defaults of the ingest command.
type IngestConfig struct {
	// ImagesFolder is used when no image directory is given and the folder
	// exists.
	ImagesFolder string `yaml:"images_folder"`
	EntityType   string `yaml:"entity_type"`
	IDPredicate  string `yaml:"id_predicate"`
}

// Backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
	BackendS3    = "s3"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Trees:    forest.DefaultTrees,
			Metric:   distance.MetricAngular.String(),
			Seed:     forest.DefaultSeed,
			LeafSize: forest.DefaultLeafSize,
		},
		Archive: ArchiveConfig{
			Name:             archive.DefaultName,
			GraphCompression: compress.AlgorithmLZ4.String(),
			CacheDir:         ".graphkb-cache",
		},
		Resources: ResourceConfig{
			MaxWorkers: 4,
		},
		Store: StoreConfig{
			Backend: BackendLocal,
			Root:    "kb-store",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Ingest: IngestConfig{
			ImagesFolder: "images",
		},
	}
}

// LoadFromFile reads path over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load returns the defaults when path is empty and LoadFromFile otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Index.Trees <= 0 {
		errs = append(errs, fmt.Errorf("index.trees must be positive, got %d", c.Index.Trees))
	}
	if c.Index.LeafSize < 2 {
		errs = append(errs, fmt.Errorf("index.leaf_size must be at least 2, got %d", c.Index.LeafSize))
	}
	if c.Index.SearchK < 0 {
		errs = append(errs, fmt.Errorf("index.search_k must not be negative"))
	}
	if _, err := distance.Parse(c.Index.Metric); err != nil {
		errs = append(errs, fmt.Errorf("index.metric: %w", err))
	}
	if _, err := compress.ParseAlgorithm(c.Archive.GraphCompression); err != nil {
		errs = append(errs, fmt.Errorf("archive.graph_compression: %w", err))
	}
	if c.Archive.Name == "" {
		errs = append(errs, errors.New("archive.name is required"))
	}
	switch c.Store.Backend {
	case BackendLocal, BackendMinIO, BackendS3:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be local, minio or s3, got %q", c.Store.Backend))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Options translates the configuration into knowledge base options. The
// configuration must be valid.
func (c *Config) Options() []graphkb.Option {
	metric, _ := distance.Parse(c.Index.Metric)
	algo, _ := compress.ParseAlgorithm(c.Archive.GraphCompression)

	return []graphkb.Option{
		graphkb.WithTrees(c.Index.Trees),
		graphkb.WithMetric(metric),
		graphkb.WithSeed(c.Index.Seed),
		graphkb.WithLeafSize(c.Index.LeafSize),
		graphkb.WithSearchK(c.Index.SearchK),
		graphkb.WithIncludeSelf(c.Index.IncludeSelf),
		graphkb.WithWorkers(c.Index.Workers),
		graphkb.WithContainerName(c.Archive.Name),
		graphkb.WithGraphCompression(algo),
		graphkb.WithCacheDir(c.Archive.CacheDir),
		graphkb.WithResourceController(c.ResourceController()),
		graphkb.WithLogger(c.Logger()),
	}
}

// ResourceController builds the controller of the resource limits.
func (c *Config) ResourceController() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.Resources.MemoryLimitBytes,
		MaxWorkers:         c.Resources.MaxWorkers,
		IOLimitBytesPerSec: c.Resources.IOLimitBytesPerSec,
	})
}

// Logger builds the configured logger.
func (c *Config) Logger() *graphkb.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if c.Log.Format == "json" {
		return graphkb.NewJSONLogger(level)
	}
	return graphkb.NewTextLogger(level)
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, err
	}
	return level, nil
}
