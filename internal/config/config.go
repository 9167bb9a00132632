// Package config provides configuration management for the scanner.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Data    DataConfig    `mapstructure:"data"`
	Tuning  TuningConfig  `mapstructure:"tuning"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ScanConfig sizes a scan batch.
type ScanConfig struct {
	Benchmark    string `mapstructure:"benchmark"`
	Concurrency  int    `mapstructure:"concurrency"`
	MaxTickers   int    `mapstructure:"max_tickers"`
	UniverseFile string `mapstructure:"universe_file"`
}

// DataConfig controls the market-data provider.
type DataConfig struct {
	Range string `mapstructure:"range"` // Yahoo lookback range, e.g. "2y"
}

// TuningConfig overrides the engine thresholds that varied across
// revisions of the detection logic. Zero values keep each engine's
// built-in default.
type TuningConfig struct {
	FlatBaseMaxDepth  float64 `mapstructure:"flat_base_max_depth"`
	DryProximity      float64 `mapstructure:"dry_proximity"`
	CupVolumeDryMax   float64 `mapstructure:"cup_volume_dry_max"`
	RSLeadMaxBelow    float64 `mapstructure:"rs_lead_max_below"`
	WatchlistMaxBelow float64 `mapstructure:"watchlist_max_below"`
	PullbackEMARange  float64 `mapstructure:"pullback_ema_range"`
	MinQualityScore   int     `mapstructure:"min_quality_score"`
}

// StorageConfig locates the scan database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/swing-scanner"
	}
	return filepath.Join(home, ".config", "swing-scanner")
}

// Load loads configuration from the specified directory. If configDir
// is empty, the default directory is used. A missing config file is
// not an error; defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("scan.benchmark", "SPY")
	v.SetDefault("scan.concurrency", 15)
	v.SetDefault("scan.max_tickers", 0)
	v.SetDefault("scan.universe_file", filepath.Join(configDir, "universe.txt"))
	v.SetDefault("data.range", "2y")
	v.SetDefault("storage.db_path", filepath.Join(configDir, "scans.db"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency)
	}
	if c.Scan.MaxTickers < 0 {
		return fmt.Errorf("scan.max_tickers must not be negative, got %d", c.Scan.MaxTickers)
	}
	if c.Scan.Benchmark == "" {
		return fmt.Errorf("scan.benchmark must not be empty")
	}
	if c.Tuning.FlatBaseMaxDepth < 0 || c.Tuning.FlatBaseMaxDepth > 1 {
		return fmt.Errorf("tuning.flat_base_max_depth must be a fraction, got %f", c.Tuning.FlatBaseMaxDepth)
	}
	return nil
}
