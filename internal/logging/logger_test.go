package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})

	logger.Debug(context.Background(), "debug message")
	logger.Info(context.Background(), "info message")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	child := logger.WithComponent("viewport")
	child.Info(context.Background(), "offset updated", "offset", 1280.5)

	out := buf.String()
	assert.Contains(t, out, `"component":"viewport"`)
	assert.Contains(t, out, `"offset":1280.5`)
}

func TestErrorAttached(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Error(context.Background(), errors.New("boom"), "load failed", "range_start", 40)

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"range_start":40`)
}

func TestWithCarriesPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	child := logger.With("strategy", "offset")
	child.Info(context.Background(), "range loaded")

	assert.Contains(t, buf.String(), `"strategy":"offset"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
