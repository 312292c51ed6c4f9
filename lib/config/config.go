// Package config loads and validates respool configuration files.
// TOML is the native format; files ending in .yaml or .yml are read as YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/pool"
	"github.com/go-i2p/respool/lib/validation"
)

// Default configuration values
const (
	DefaultMaxSize        = 3
	DefaultAcquireTimeout = 5 * time.Second
	DefaultWorkers        = 8
	DefaultOpsPerWorker   = 50
	DefaultHoldTime       = 2 * time.Millisecond
	DefaultMaxRetries     = 20
	DefaultRetryBackoff   = time.Millisecond
	DefaultMetricsListen  = "127.0.0.1:9464"
	DefaultFileName       = "respool.toml"
)

// Acquisition modes for the stress run.
const (
	ModeFailFast = "fail-fast"
	ModeWait     = "wait"
)

// Config holds all configuration for respool.
type Config struct {
	Pool    PoolConfig    `toml:"pool" yaml:"pool"`
	Stress  StressConfig  `toml:"stress" yaml:"stress"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// PoolConfig contains resource pool settings.
type PoolConfig struct {
	// MaxSize is the maximum number of resources the pool creates
	MaxSize int `toml:"max_size" yaml:"max_size"`
	// StrictRelease makes releasing an idle resource an error
	StrictRelease bool `toml:"strict_release" yaml:"strict_release"`
	// AcquireTimeout bounds blocking acquires without a deadline
	AcquireTimeout time.Duration `toml:"acquire_timeout" yaml:"acquire_timeout"`
}

// StressConfig contains load generator settings.
type StressConfig struct {
	// Workers is the number of concurrent simulated callers
	Workers int `toml:"workers" yaml:"workers"`
	// OpsPerWorker is how many acquire/release cycles each caller performs
	OpsPerWorker int `toml:"ops_per_worker" yaml:"ops_per_worker"`
	// HoldTime is how long a caller keeps a resource
	HoldTime time.Duration `toml:"hold_time" yaml:"hold_time"`
	// Mode is "fail-fast" (Acquire with retries) or "wait" (AcquireWait)
	Mode string `toml:"mode" yaml:"mode"`
	// MaxRetries bounds retries after an exhausted acquire in fail-fast mode
	MaxRetries int `toml:"max_retries" yaml:"max_retries"`
	// RetryBackoff is the base delay between retries, multiplied by the attempt
	RetryBackoff time.Duration `toml:"retry_backoff" yaml:"retry_backoff"`
	// Rate limits acquisitions per second across all workers (0 = unlimited)
	Rate float64 `toml:"rate" yaml:"rate"`
	// Burst is the token bucket capacity when Rate is set
	Burst int `toml:"burst" yaml:"burst"`
}

// MetricsConfig contains metrics endpoint settings.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Listen is the address to bind the metrics server to
	Listen string `toml:"listen" yaml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxSize:        DefaultMaxSize,
			AcquireTimeout: DefaultAcquireTimeout,
		},
		Stress: StressConfig{
			Workers:      DefaultWorkers,
			OpsPerWorker: DefaultOpsPerWorker,
			HoldTime:     DefaultHoldTime,
			Mode:         ModeFailFast,
			MaxRetries:   DefaultMaxRetries,
			RetryBackoff: DefaultRetryBackoff,
			Burst:        1,
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsListen,
		},
	}
}

// LoadConfig reads configuration from a TOML or YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Debug("config file not found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.WithField("path", path).Debug("loaded config")
	return cfg, nil
}

// SaveConfig writes the configuration to a TOML or YAML file, chosen by
// extension. It creates the parent directory if it doesn't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := Marshal(cfg, path)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Marshal encodes cfg in the format implied by path's extension.
func Marshal(cfg *Config, path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return toml.Marshal(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks the configuration for errors. Every invalid field is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs validation.Errors

	errs.Add(validation.Positive("pool.max_size", c.Pool.MaxSize))
	errs.Add(validation.NonNegativeDuration("pool.acquire_timeout", c.Pool.AcquireTimeout))

	errs.Add(validation.Positive("stress.workers", c.Stress.Workers))
	errs.Add(validation.Positive("stress.ops_per_worker", c.Stress.OpsPerWorker))
	errs.Add(validation.NonNegativeDuration("stress.hold_time", c.Stress.HoldTime))
	errs.Add(validation.OneOf("stress.mode", c.Stress.Mode, ModeFailFast, ModeWait))
	errs.Add(validation.NonNegative("stress.max_retries", c.Stress.MaxRetries))
	errs.Add(validation.NonNegativeDuration("stress.retry_backoff", c.Stress.RetryBackoff))
	errs.Add(validation.NonNegativeFloat("stress.rate", c.Stress.Rate))

	if c.Metrics.Enabled {
		errs.Add(validation.HostPort("metrics.listen", c.Metrics.Listen))
	}

	if errs.HasErrors() {
		return fmt.Errorf("%w: %w", apperrors.ErrConfigInvalid, errs)
	}
	return nil
}

// PoolConfig converts the pool section into a pool.Config.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		MaxSize:        c.Pool.MaxSize,
		AcquireTimeout: c.Pool.AcquireTimeout,
		StrictRelease:  c.Pool.StrictRelease,
	}
}
