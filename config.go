package vector

import (
	"flag"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// minArenaChunkSize is the smallest arena chunk accepted by Validate.
const minArenaChunkSize = 64 * datasize.B

// Config selects the allocator chain installed as DefaultAllocator.
type Config struct {
	// MemoryLimit caps the bytes outstanding across all blocks. 0 disables it.
	MemoryLimit datasize.ByteSize `yaml:"memory_limit"`
	Arena       ArenaConfig       `yaml:"arena"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ArenaConfig configures the arena allocator.
type ArenaConfig struct {
	Enabled   bool              `yaml:"enabled"`
	ChunkSize datasize.ByteSize `yaml:"chunk_size"`
}

// MetricsConfig configures allocator instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Arena:   ArenaConfig{ChunkSize: DefaultChunkSize * datasize.B},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// RegisterFlags registers the flags under the "vector." prefix.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("vector.", f)
}

// RegisterFlagsWithPrefix registers the flags with the given prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.TextVar(&cfg.MemoryLimit, prefix+"memory-limit", cfg.MemoryLimit, "Maximum bytes outstanding across all blocks. 0 disables the limit.")
	f.BoolVar(&cfg.Arena.Enabled, prefix+"arena.enabled", cfg.Arena.Enabled, "Serve pointer-free element types from an arena allocator.")
	f.TextVar(&cfg.Arena.ChunkSize, prefix+"arena.chunk-size", cfg.Arena.ChunkSize, "Size of each arena chunk.")
	f.BoolVar(&cfg.Metrics.Enabled, prefix+"metrics.enabled", cfg.Metrics.Enabled, "Record allocator metrics.")
}

// Validate rejects an enabled arena with chunks below 64 bytes.
func (cfg *Config) Validate() error {
	if cfg.Arena.Enabled && cfg.Arena.ChunkSize < minArenaChunkSize {
		return errors.Errorf("arena chunk size %s is below the minimum %s", cfg.Arena.ChunkSize.HR(), minArenaChunkSize.HR())
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// NewAllocator builds the allocator chain described by cfg: the Go runtime or
// an arena at the bottom, then the memory limit, then instrumentation.
// reg and logger are only used when metrics are enabled; arena usage is then
// exported on reg as well. Building a second chain on the same registry shares
// the allocator counters and moves the arena gauges to the new arena.
func NewAllocator(cfg Config, reg prometheus.Registerer, logger log.Logger) (Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var a Allocator = NewGoAllocator()
	if cfg.Arena.Enabled {
		arena := NewSafeAllocator(NewArenaAllocator(int(cfg.Arena.ChunkSize.Bytes())))
		if cfg.Metrics.Enabled {
			if err := registerArenaCollector(reg, arena); err != nil {
				return nil, errors.Wrap(err, "register arena metrics")
			}
		}
		a = arena
	}
	if cfg.MemoryLimit > 0 {
		a = NewLimitedAllocator(a, int64(cfg.MemoryLimit.Bytes()))
	}
	if cfg.Metrics.Enabled {
		a = NewInstrumentedAllocator(a, reg, logger)
	}
	return a, nil
}
