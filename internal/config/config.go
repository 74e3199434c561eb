// Package config provides configuration management for the vlist
// engine and its demo front-ends using Viper for flexible loading from
// files, environment variables, and command-line flags.
//
// The configuration system supports YAML files and environment
// variable overrides with the VLIST_ prefix. Malformed engine
// configuration (unknown pagination strategy, non-positive range size,
// inverted speed thresholds) is a fatal construction-time error; no
// runtime error is.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/types"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
}

// EngineConfig is the recognized option surface of the virtualization
// core.
type EngineConfig struct {
	Orientation        types.Orientation `yaml:"orientation" mapstructure:"orientation"`
	EstimatedItemSize  float64           `yaml:"estimated_item_size" mapstructure:"estimated_item_size"`
	Overscan           int               `yaml:"overscan" mapstructure:"overscan"`
	RangeSize          int               `yaml:"range_size" mapstructure:"range_size"`
	FastThreshold      float64           `yaml:"fast_threshold" mapstructure:"fast_threshold"` // px/ms
	SlowThreshold      float64           `yaml:"slow_threshold" mapstructure:"slow_threshold"` // px/ms
	MaxConcurrent      int               `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
	FetchTimeout       time.Duration     `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	PlaceholderMask    string            `yaml:"placeholder_mask_char" mapstructure:"placeholder_mask_char"`
	PaginationStrategy types.Strategy    `yaml:"pagination_strategy" mapstructure:"pagination_strategy"`
	MinThumbSize       float64           `yaml:"min_thumb_size" mapstructure:"min_thumb_size"`
	ShowErrorItems     bool              `yaml:"show_error_items" mapstructure:"show_error_items"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DatasetConfig controls the demo dataset: a REST upstream, a JSON
// file on disk, or a generated in-memory set of Count fake records.
// URL wins over Path.
type DatasetConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Path  string `yaml:"path" mapstructure:"path"`
	Count int    `yaml:"count" mapstructure:"count"`
	Seed  int64  `yaml:"seed" mapstructure:"seed"`
}

// DefaultEngine returns the engine defaults applied when the config
// file and environment leave options unset.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		Orientation:        types.OrientationVertical,
		EstimatedItemSize:  40,
		Overscan:           5,
		RangeSize:          20,
		FastThreshold:      1.0,
		SlowThreshold:      0.25,
		MaxConcurrent:      4,
		FetchTimeout:       3 * time.Second,
		PlaceholderMask:    "█",
		PaginationStrategy: types.StrategyOffset,
		MinThumbSize:       20,
	}
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	defaults := DefaultEngine()

	if config.Engine.Orientation == "" {
		config.Engine.Orientation = defaults.Orientation
	}
	if config.Engine.EstimatedItemSize == 0 {
		config.Engine.EstimatedItemSize = defaults.EstimatedItemSize
	}
	if !viper.IsSet("engine.overscan") && config.Engine.Overscan == 0 {
		config.Engine.Overscan = defaults.Overscan
	}
	if config.Engine.RangeSize == 0 {
		config.Engine.RangeSize = defaults.RangeSize
	}
	if config.Engine.FastThreshold == 0 {
		config.Engine.FastThreshold = defaults.FastThreshold
	}
	if config.Engine.SlowThreshold == 0 {
		config.Engine.SlowThreshold = defaults.SlowThreshold
	}
	if config.Engine.MaxConcurrent == 0 {
		config.Engine.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.Engine.FetchTimeout == 0 {
		config.Engine.FetchTimeout = defaults.FetchTimeout
	}
	if config.Engine.PlaceholderMask == "" {
		config.Engine.PlaceholderMask = defaults.PlaceholderMask
	}
	if config.Engine.PaginationStrategy == "" {
		config.Engine.PaginationStrategy = defaults.PaginationStrategy
	}
	if config.Engine.MinThumbSize == 0 {
		config.Engine.MinThumbSize = defaults.MinThumbSize
	}

	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8120
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.Dataset.Count == 0 {
		config.Dataset.Count = 10000
	}
}

// Validate checks configuration values. Engine option errors are fatal
// by design: a misconfigured engine must not come up half-working.
func Validate(config *Config) error {
	if err := validateEngine(&config.Engine); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Dataset.Count < 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("dataset count %d is negative", config.Dataset.Count),
		)
	}

	return nil
}

func validateEngine(config *EngineConfig) error {
	if !config.Orientation.Valid() {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("orientation %q is not vertical or horizontal", config.Orientation),
		)
	}

	if !config.PaginationStrategy.Valid() {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeUnknownStrategy,
			fmt.Sprintf("unknown pagination strategy: %q", config.PaginationStrategy),
		)
	}

	if config.RangeSize <= 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("range_size must be positive, got %d", config.RangeSize),
		)
	}

	if config.EstimatedItemSize <= 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("estimated_item_size must be positive, got %g", config.EstimatedItemSize),
		)
	}

	if config.Overscan < 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("overscan must not be negative, got %d", config.Overscan),
		)
	}

	if config.SlowThreshold <= 0 || config.FastThreshold <= 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			"speed thresholds must be positive",
		)
	}

	if config.SlowThreshold >= config.FastThreshold {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("slow_threshold %g must be below fast_threshold %g",
				config.SlowThreshold, config.FastThreshold),
		)
	}

	if config.MaxConcurrent <= 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("max_concurrent_requests must be positive, got %d", config.MaxConcurrent),
		)
	}

	if config.FetchTimeout <= 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("fetch_timeout must be positive, got %s", config.FetchTimeout),
		)
	}

	if config.PlaceholderMask == "" {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			"placeholder_mask_char must not be empty",
		)
	}

	if config.MinThumbSize < 0 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("min_thumb_size must not be negative, got %g", config.MinThumbSize),
		)
	}

	return nil
}

func validateServer(config *ServerConfig) error {
	if config.Port < 0 || config.Port > 65535 {
		return vlisterrors.NewConfigError(
			vlisterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
		)
	}

	return nil
}
