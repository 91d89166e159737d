package beam

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the file form of a search configuration.
type Config struct {
	Strategy     string  `json:"strategy" yaml:"strategy"`
	BeamWidth    int     `json:"beam_width" yaml:"beam_width"`
	MaxDepth     int     `json:"max_depth" yaml:"max_depth"`
	Cutoff       float32 `json:"cutoff" yaml:"cutoff"`
	MinBranching int     `json:"min_branching" yaml:"min_branching"`
	Threshold    float32 `json:"threshold" yaml:"threshold"`
	MaxWidth     int     `json:"max_width" yaml:"max_width"`
	TrimWarmup   int     `json:"trim_warmup" yaml:"trim_warmup"`
	TrimEvery    int     `json:"trim_every" yaml:"trim_every"`
	Threads      int     `json:"threads" yaml:"threads"`
	Compress     bool    `json:"compress" yaml:"compress"`
	MemoryLimit  string  `json:"memory_limit" yaml:"memory_limit"` // e.g. "512MiB", empty = unlimited
}

// DefaultConfig returns the file form of DefaultSearchConfig with a
// breadth-first strategy.
func DefaultConfig() Config {
	d := DefaultSearchConfig()
	return Config{
		Strategy:     BreadthFirst.String(),
		BeamWidth:    d.BeamWidth,
		MaxDepth:     d.MaxDepth,
		Cutoff:       d.Cutoff,
		MinBranching: d.MinBranching,
		Threshold:    d.Threshold,
		MaxWidth:     d.MaxWidth,
		TrimWarmup:   d.TrimWarmup,
		TrimEvery:    d.TrimEvery,
		Threads:      d.Threads,
		Compress:     d.Compress,
	}
}

// LoadConfig builds a Config from defaults, the file at path and BEAM_*
// environment variables, in that order.
//
// path may be empty. A missing file leaves the defaults in place; a file
// that is neither valid YAML nor valid JSON is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadConfigFromEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) error {
	if v := os.Getenv("BEAM_STRATEGY"); v != "" {
		cfg.Strategy = v
	}
	if v := os.Getenv("BEAM_WIDTH"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BEAM_WIDTH=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.BeamWidth = i
	}
	if v := os.Getenv("BEAM_MAX_DEPTH"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BEAM_MAX_DEPTH=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.MaxDepth = i
	}
	if v := os.Getenv("BEAM_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: BEAM_THRESHOLD=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Threshold = float32(f)
	}
	if v := os.Getenv("BEAM_CUTOFF"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: BEAM_CUTOFF=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Cutoff = float32(f)
	}
	if v := os.Getenv("BEAM_MAX_WIDTH"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BEAM_MAX_WIDTH=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.MaxWidth = i
	}
	if v := os.Getenv("BEAM_THREADS"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BEAM_THREADS=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Threads = i
	}
	if v := os.Getenv("BEAM_MEMORY_LIMIT"); v != "" {
		cfg.MemoryLimit = v
	}
	return nil
}

// Validate checks the strategy name and memory limit, then the search
// settings they produce.
func (c Config) Validate() error {
	if _, ok := ParseStrategy(c.Strategy); !ok {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	if _, err := c.memoryLimit(); err != nil {
		return err
	}
	cfg := DefaultSearchConfig()
	for _, opt := range c.searchOptions(0) {
		opt(&cfg)
	}
	return cfg.Validate()
}

// SearchStrategy returns the configured strategy.
func (c Config) SearchStrategy() Strategy {
	s, _ := ParseStrategy(c.Strategy)
	return s
}

// Options converts the file settings into session options. An invalid
// memory limit is reported by Validate and treated as unlimited here.
func (c Config) Options() []Option {
	limit, _ := c.memoryLimit()
	return c.searchOptions(limit)
}

func (c Config) searchOptions(limit uint64) []Option {
	return []Option{
		WithBeamWidth(c.BeamWidth),
		WithMaxDepth(c.MaxDepth),
		WithCutoff(c.Cutoff),
		WithMinBranching(c.MinBranching),
		WithThreshold(c.Threshold),
		WithMaxWidth(c.MaxWidth),
		WithTrimSchedule(c.TrimWarmup, c.TrimEvery),
		WithThreads(c.Threads),
		WithMemoryLimit(limit),
		WithSnapshotCompression(c.Compress),
	}
}

func (c Config) memoryLimit() (uint64, error) {
	if c.MemoryLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: memory limit %q: %v", ErrInvalidConfig, c.MemoryLimit, err)
	}
	return n, nil
}
