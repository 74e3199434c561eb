package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vlisterrors "github.com/conneroisu/vlist/internal/errors"
	"github.com/conneroisu/vlist/internal/types"
)

func validConfig() *Config {
	return &Config{
		Engine: DefaultEngine(),
		Server: ServerConfig{Host: "localhost", Port: 8120},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, types.OrientationVertical, cfg.Engine.Orientation)
	assert.Equal(t, 20, cfg.Engine.RangeSize)
	assert.Equal(t, 5, cfg.Engine.Overscan)
	assert.Equal(t, 3*time.Second, cfg.Engine.FetchTimeout)
	assert.Equal(t, types.StrategyOffset, cfg.Engine.PaginationStrategy)
	assert.Equal(t, "█", cfg.Engine.PlaceholderMask)
	assert.Equal(t, 8120, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Dataset.Count)
}

func TestLoadRespectsViperOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("engine.pagination_strategy", "cursor")
	viper.Set("engine.range_size", 50)
	viper.Set("engine.overscan", 0)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, types.StrategyCursor, cfg.Engine.PaginationStrategy)
	assert.Equal(t, 50, cfg.Engine.RangeSize)
	assert.Equal(t, 0, cfg.Engine.Overscan)
}

func TestUnknownStrategyIsFatal(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.PaginationStrategy = "keyset"

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, vlisterrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "unknown pagination strategy")
}

func TestNonPositiveRangeSizeIsFatal(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.RangeSize = 0

	require.Error(t, Validate(cfg))

	cfg.Engine.RangeSize = -5
	require.Error(t, Validate(cfg))
}

func TestInvertedThresholdsRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.SlowThreshold = 2.0
	cfg.Engine.FastThreshold = 1.0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow_threshold")
}

func TestInvalidOrientationRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Orientation = "diagonal"

	require.Error(t, Validate(cfg))
}

func TestPortBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000

	require.Error(t, Validate(cfg))

	cfg.Server.Port = 0
	require.NoError(t, Validate(cfg))
}

func TestEmptyMaskRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.PlaceholderMask = ""

	require.Error(t, Validate(cfg))
}

func TestValidDefaultsPass(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}
