// Package config holds the service configuration, loadable from YAML or
// JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marketsync/marketsync/pipeline"
	"github.com/marketsync/marketsync/yahoo"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Provider    ProviderConfig    `json:"provider" yaml:"provider"`
	Instruments InstrumentsConfig `json:"instruments" yaml:"instruments"`
	Model       ModelConfig       `json:"model" yaml:"model"`
	Backtest    BacktestConfig    `json:"backtest" yaml:"backtest"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// ProviderConfig configures the price source and its cache.
type ProviderConfig struct {
	BaseURL  string `json:"base_url" yaml:"base_url"`
	CacheTTL string `json:"cache_ttl" yaml:"cache_ttl"` // e.g. "1h", "30m"
}

// ParseCacheTTL converts the cache TTL string to a duration.
func (p ProviderConfig) ParseCacheTTL() (time.Duration, error) {
	if p.CacheTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(p.CacheTTL)
}

// InstrumentsConfig names the tickers to fetch. Currency may be empty to
// run without the currency feature.
type InstrumentsConfig struct {
	Foreign  string `json:"foreign" yaml:"foreign"`
	Domestic string `json:"domestic" yaml:"domestic"`
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// ModelConfig fixes the classifier hyperparameters. The seed is part of
// the contract: identical inputs must produce identical predictions.
type ModelConfig struct {
	Trees           int   `json:"trees" yaml:"trees"`
	MinSamplesSplit int   `json:"min_samples_split" yaml:"min_samples_split"`
	Seed            int64 `json:"seed" yaml:"seed"`
}

// BacktestConfig controls the simulation defaults.
type BacktestConfig struct {
	TrainSplit float64 `json:"train_split" yaml:"train_split"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
}

// JournalConfig enables run persistence when DBPath is set.
type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if _, err := c.Provider.ParseCacheTTL(); err != nil {
		return fmt.Errorf("provider.cache_ttl: %w", err)
	}
	if c.Instruments.Foreign == "" || c.Instruments.Domestic == "" {
		return fmt.Errorf("instruments.foreign and instruments.domestic are required")
	}
	if c.Model.Trees <= 0 {
		return fmt.Errorf("model.trees must be positive")
	}
	if c.Model.MinSamplesSplit < 2 {
		return fmt.Errorf("model.min_samples_split must be at least 2")
	}
	if c.Backtest.TrainSplit <= 0 || c.Backtest.TrainSplit >= 1 {
		return fmt.Errorf("backtest.train_split must be in (0,1)")
	}
	if c.Backtest.Threshold < pipeline.MinThreshold || c.Backtest.Threshold > pipeline.MaxThreshold {
		return fmt.Errorf("backtest.threshold must be in [%g,%g]",
			pipeline.MinThreshold, pipeline.MaxThreshold)
	}
	return nil
}

// Default returns a configuration with the standard dashboard settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Provider: ProviderConfig{
			BaseURL:  yahoo.DefaultBaseURL,
			CacheTTL: "1h",
		},
		Instruments: InstrumentsConfig{
			Foreign:  "^GSPC",
			Domestic: "1306.T",
			Currency: "JPY=X",
		},
		Model: ModelConfig{
			Trees:           100,
			MinSamplesSplit: 5,
			Seed:            42,
		},
		Backtest: BacktestConfig{
			TrainSplit: pipeline.DefaultTrainSplit,
			Threshold:  pipeline.DefaultThreshold,
		},
		Journal: JournalConfig{},
	}
}
