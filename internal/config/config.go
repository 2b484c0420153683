package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Spotify contains configuration for the remote player adapter.
type Spotify struct {
	BaseURL        string `toml:"base_url"`
	Market         string `toml:"market"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Oracle contains configuration for the recommendation oracle.
type Oracle struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AutoDJ contains thresholds and timing for the decision loops.
type AutoDJ struct {
	SkipThresholdSeconds     int `toml:"skip_threshold_seconds"`
	RescueSkipCount          int `toml:"rescue_skip_count"`
	ExpandListenCount        int `toml:"expand_listen_count"`
	QueueLowWater            int `toml:"queue_low_water"`
	ExpansionCooldownSeconds int `toml:"expansion_cooldown_seconds"`
	ActivePollSeconds        int `toml:"active_poll_seconds"`
	IdlePollSeconds          int `toml:"idle_poll_seconds"`
}

// Graph contains tuning for the taste graph.
type Graph struct {
	WeightIncrement float64 `toml:"weight_increment"`
	WeightCap       float64 `toml:"weight_cap"`
	IngestBatchSize int     `toml:"ingest_batch_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the Moodify core.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Spotify: remote player adapter connection
//   - Oracle: recommendation oracle connection
//   - AutoDJ: skip/listen thresholds, cooldowns, polling cadence
//   - Graph: taste-graph weight tuning and ingest batching
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Spotify Spotify `toml:"spotify"`
	Oracle  Oracle  `toml:"oracle"`
	AutoDJ  AutoDJ  `toml:"autodj"`
	Graph   Graph   `toml:"graph"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/moodify/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all defaults applied for fields the file left unset.
func Load(path string) (*Config, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if path == "" && errors.Is(err, fs.ErrNotExist) {
			// No config file is fine; run on defaults plus env overrides.
			applyEnvOverrides(&cfg)
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	applyEnvOverrides(&cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database path under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "taste.db")
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return expandPath(path)
	}
	return DefaultConfigPath()
}

func applyEnvOverrides(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv("MOODIFY_ORACLE_API_KEY")); key != "" {
		cfg.Oracle.APIKey = key
	}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
