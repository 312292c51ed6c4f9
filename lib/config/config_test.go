package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/go-i2p/respool/lib/errors"
	"github.com/go-i2p/respool/lib/validation"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pool.MaxSize != DefaultMaxSize {
		t.Errorf("default max size = %d, want %d", cfg.Pool.MaxSize, DefaultMaxSize)
	}
	if cfg.Stress.Mode != ModeFailFast {
		t.Errorf("default mode = %q, want %q", cfg.Stress.Mode, ModeFailFast)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled by default")
	}
	if cfg.Metrics.Listen == "" {
		t.Error("default config should have a metrics listen address")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "max size zero",
			modify:  func(c *Config) { c.Pool.MaxSize = 0 },
			wantErr: true,
		},
		{
			name:    "max size one",
			modify:  func(c *Config) { c.Pool.MaxSize = 1 },
			wantErr: false,
		},
		{
			name:    "negative acquire timeout",
			modify:  func(c *Config) { c.Pool.AcquireTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Stress.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "zero ops",
			modify:  func(c *Config) { c.Stress.OpsPerWorker = 0 },
			wantErr: true,
		},
		{
			name:    "negative hold time",
			modify:  func(c *Config) { c.Stress.HoldTime = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			modify:  func(c *Config) { c.Stress.Mode = "lifo" },
			wantErr: true,
		},
		{
			name:    "wait mode",
			modify:  func(c *Config) { c.Stress.Mode = ModeWait },
			wantErr: false,
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Stress.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "negative backoff",
			modify:  func(c *Config) { c.Stress.RetryBackoff = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "negative rate",
			modify:  func(c *Config) { c.Stress.Rate = -1 },
			wantErr: true,
		},
		{
			name: "metrics enabled without listen",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("Validate() error should wrap ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent.toml")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig should not error on missing file: %v", err)
	}
	if cfg.Pool.MaxSize != DefaultMaxSize {
		t.Errorf("should have default max size, got %d", cfg.Pool.MaxSize)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	for _, name := range []string{"respool.toml", "respool.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)

			original := DefaultConfig()
			original.Pool.MaxSize = 7
			original.Pool.StrictRelease = true
			original.Pool.AcquireTimeout = 250 * time.Millisecond
			original.Stress.Mode = ModeWait
			original.Stress.HoldTime = 5 * time.Millisecond
			original.Stress.Rate = 150

			if err := SaveConfig(original, configPath); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}

			if *loaded != *original {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *loaded, *original)
			}
		})
	}
}

func TestLoadConfig_PartialTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "respool.toml")
	data := []byte("[pool]\nmax_size = 10\n\n[stress]\nworkers = 2\n")
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pool.MaxSize != 10 {
		t.Errorf("max size = %d, want 10", cfg.Pool.MaxSize)
	}
	if cfg.Stress.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Stress.Workers)
	}
	if cfg.Stress.OpsPerWorker != DefaultOpsPerWorker {
		t.Errorf("unset fields should keep defaults, got ops %d", cfg.Stress.OpsPerWorker)
	}
}

func TestLoadConfig_YAMLDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "respool.yml")
	data := []byte("pool:\n  max_size: 4\n  acquire_timeout: 2s\nstress:\n  mode: wait\n  hold_time: 3ms\n")
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pool.AcquireTimeout != 2*time.Second {
		t.Errorf("acquire timeout = %v, want 2s", cfg.Pool.AcquireTimeout)
	}
	if cfg.Stress.HoldTime != 3*time.Millisecond {
		t.Errorf("hold time = %v, want 3ms", cfg.Stress.HoldTime)
	}
	if cfg.Stress.Mode != ModeWait {
		t.Errorf("mode = %q, want %q", cfg.Stress.Mode, ModeWait)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"invalid toml", "bad.toml", "this is not [valid toml"},
		{"invalid yaml", "bad.yaml", "pool: [unterminated"},
		{"fails validation", "zero.toml", "[pool]\nmax_size = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(configPath, []byte(tt.data), 0o600); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}
			if _, err := LoadConfig(configPath); err == nil {
				t.Error("LoadConfig should error")
			}
		})
	}
}

func TestSaveConfig_CreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "new", "nested", DefaultFileName)

	if err := SaveConfig(DefaultConfig(), configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.MaxSize = 9
	cfg.Pool.StrictRelease = true

	pc := cfg.PoolConfig()
	if pc.MaxSize != 9 || !pc.StrictRelease || pc.AcquireTimeout != cfg.Pool.AcquireTimeout {
		t.Errorf("PoolConfig() = %+v", pc)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("PoolConfig() should be valid: %v", err)
	}
}

func TestConfig_ValidateReportsEveryField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pool.MaxSize = 0
	cfg.Stress.Mode = "lifo"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Listen = "nowhere"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"pool.max_size", "stress.mode", "metrics.listen"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
	if !errors.Is(err, validation.ErrNotAllowed) {
		t.Errorf("error should wrap validation.ErrNotAllowed: %v", err)
	}
	if apperrors.Code(err) != apperrors.CodeConfiguration {
		t.Errorf("Code() = %d, want %d", apperrors.Code(err), apperrors.CodeConfiguration)
	}
}
