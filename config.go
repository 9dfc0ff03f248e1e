package salesdb

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type PersistenceStrategy string

const (
	// Sync fsyncs the backing file after every write.
	Sync PersistenceStrategy = "sync"
	// NoSync leaves flushing to the operating system.
	NoSync PersistenceStrategy = "nosync"
)

const (
	defaultMaxMemoryFraction = 0.5
	defaultQueryCacheBytes   = 4 << 20
	queryCacheShards         = 8
)

type Config struct {
	PersistenceStrategy PersistenceStrategy
	// Header replaces the default header of a newly created file.
	// An existing file keeps its own header.
	Header string
	// MaxMemoryFraction caps the backing file size relative to total
	// system memory, since the whole dataset lives in memory.
	MaxMemoryFraction  float64
	DisableMemoryCheck bool
	// QueryCacheBytes bounds the memory held by cached filter results.
	// The cache is emptied by every committed mutation.
	QueryCacheBytes   uint64
	DisableQueryCache bool
	Logger            *zap.Logger
}

func (cfg *Config) applyDefaults() {
	if cfg.PersistenceStrategy == "" {
		cfg.PersistenceStrategy = Sync
	}

	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}

	if cfg.MaxMemoryFraction <= 0 {
		cfg.MaxMemoryFraction = defaultMaxMemoryFraction
	}

	if cfg.QueryCacheBytes == 0 {
		cfg.QueryCacheBytes = defaultQueryCacheBytes
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

func (cfg *Config) validate() error {
	switch cfg.PersistenceStrategy {
	case Sync, NoSync:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown persistence strategy %q", cfg.PersistenceStrategy)
	}

	if cfg.MaxMemoryFraction > 1 {
		return errors.Wrapf(ErrInvalidConfig, "max memory fraction %v is above 1", cfg.MaxMemoryFraction)
	}

	return nil
}

// FileConfig is the YAML representation of a store configuration.
type FileConfig struct {
	File              string              `yaml:"file"`
	Persistence       PersistenceStrategy `yaml:"persistence"`
	Header            string              `yaml:"header"`
	LogLevel          string              `yaml:"log_level"`
	MaxMemoryFraction float64             `yaml:"max_memory_fraction"`
	QueryCacheBytes   uint64              `yaml:"query_cache_bytes"`
	DisableQueryCache bool                `yaml:"disable_query_cache"`
}

func ParseConfig(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	if fc.LogLevel == "" {
		fc.LogLevel = "info"
	}

	if _, err := zap.ParseAtomicLevel(fc.LogLevel); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "log level %q", fc.LogLevel)
	}

	return &fc, nil
}

func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config file %s", path)
	}

	return ParseConfig(data)
}

// Config converts the file representation into store options.
func (fc *FileConfig) Config(logger *zap.Logger) *Config {
	return &Config{
		PersistenceStrategy: fc.Persistence,
		Header:              fc.Header,
		MaxMemoryFraction:   fc.MaxMemoryFraction,
		QueryCacheBytes:     fc.QueryCacheBytes,
		DisableQueryCache:   fc.DisableQueryCache,
		Logger:              logger,
	}
}
