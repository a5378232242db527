package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/askwidget/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel(""))
}

func TestNewWritesJSONWithSource(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(slog.LevelInfo, &buf)

	log.Debug("hidden")
	log.Error("exchange failed", "seq", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "exchange failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.EqualValues(t, 3, entry["seq"])
	assert.Contains(t, entry, "source")
}
