package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"krishi-mitra-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level(&config.Config{GinMode: "debug"}))
	assert.Equal(t, slog.LevelInfo, Level(&config.Config{GinMode: "release"}))
	assert.Equal(t, slog.LevelWarn, Level(&config.Config{GinMode: "debug", LogLevel: "warn"}))
	assert.Equal(t, slog.LevelError, Level(&config.Config{LogLevel: "error"}))
}

func TestInitLoggerToWritesJSON(t *testing.T) {
	t.Cleanup(func() { Logger = nil })

	var buf bytes.Buffer
	InitLoggerTo(&buf, &config.Config{GinMode: "release", LogFormat: "json"})

	Debug("hidden")
	Info("Answer cache loaded", "entries", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Answer cache loaded", record["msg"])
	assert.Equal(t, float64(3), record["entries"])
}

func TestHelpersBeforeInit(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Info("dropped")
		With("run_id", "x").Info("dropped")
	})
}
