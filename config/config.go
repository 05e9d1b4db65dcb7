package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/risk"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// TRADEJOURNAL_STORE_PATH.
const EnvPrefix = "TRADEJOURNAL"

// Config is the complete tradejournal configuration.
type Config struct {
	Settings journal.Settings `json:"settings" yaml:"settings"`
	Risk     risk.Policy      `json:"risk" yaml:"risk"`
	Store    StoreConfig      `json:"store" yaml:"store"`
	Feed     FeedConfig       `json:"feed" yaml:"feed"`
	Log      LogConfig        `json:"log" yaml:"log"`
}

// StoreConfig selects where the journal is persisted.
type StoreConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite" or "json"
	Path string `json:"path" yaml:"path"` // database file, or directory for json
}

// FeedConfig points at the analytics JSON produced by the offline converter.
type FeedConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// Store types.
const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
)

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Settings: journal.DefaultSettings(),
		Risk:     risk.DefaultPolicy(),
		Store: StoreConfig{
			Type: StoreSQLite,
			Path: "./tradejournal.db",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads path when it is not empty, otherwise starts from Default, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readFile decodes path over the defaults, so a partial file is fine.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		return cfg, nil
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// envOverrides mirrors the overridable fields. Unset variables leave
// the pointers nil. Keys are derived with split_words only, so every one
// carries the TRADEJOURNAL_ prefix.
type envOverrides struct {
	StoreType      *string  `split_words:"true"`
	StorePath      *string  `split_words:"true"`
	FeedPath       *string  `split_words:"true"`
	LogLevel       *string  `split_words:"true"`
	LogPretty      *bool    `split_words:"true"`
	AccountSize    *float64 `split_words:"true"`
	RiskPercentage *float64 `split_words:"true"`
	Exchanges      []string
}

// ApplyEnv overrides fields from TRADEJOURNAL_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("process env config: %w", err)
	}

	if env.StoreType != nil {
		c.Store.Type = *env.StoreType
	}
	if env.StorePath != nil {
		c.Store.Path = *env.StorePath
	}
	if env.FeedPath != nil {
		c.Feed.Path = *env.FeedPath
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	if env.LogPretty != nil {
		c.Log.Pretty = *env.LogPretty
	}
	if env.AccountSize != nil {
		c.Settings.AccountSize = *env.AccountSize
	}
	if env.RiskPercentage != nil {
		c.Settings.RiskPercentage = *env.RiskPercentage
	}
	if len(env.Exchanges) > 0 {
		c.Settings.DefaultExchanges = env.Exchanges
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Store.Type != StoreSQLite && c.Store.Type != StoreJSON {
		return fmt.Errorf("store.type must be 'sqlite' or 'json'")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if len(c.Settings.DefaultExchanges) == 0 {
		return fmt.Errorf("settings.default_exchanges must not be empty")
	}
	if c.Settings.RiskPercentage <= 0 || c.Settings.RiskPercentage > 100 {
		return fmt.Errorf("settings.risk_percentage must be between 0 and 100")
	}
	if c.Settings.AccountSize < 0 {
		return fmt.Errorf("settings.account_size must not be negative")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk.%w", err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("unknown log.level: %s", c.Log.Level)
	}
	return nil
}
