package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_JSONLevels(t *testing.T) {
	tests := []struct {
		level      string
		wantLevels []string
	}{
		{level: "debug", wantLevels: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", wantLevels: []string{"INFO", "WARN", "ERROR"}},
		{level: "warn", wantLevels: []string{"WARN", "ERROR"}},
		{level: "error", wantLevels: []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("bid placed")
			logger.Info("bid placed")
			logger.Warn("bid count increment failed")
			logger.Error("store unavailable")

			var got []string
			for _, entry := range decodeLines(t, output) {
				got = append(got, entry["level"].(string))
			}
			assert.Equal(t, tt.wantLevels, got)
		})
	}
}

func TestNew_JSONAttributes(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", writer: output})
	require.NoError(t, err)

	logger.Info("bid placed",
		slog.String("job_id", "J1"),
		slog.Int("bid_count", 3),
		slog.Bool("published", true),
	)

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "bid placed", entries[0]["msg"])
	assert.Equal(t, "J1", entries[0]["job_id"])
	assert.Equal(t, float64(3), entries[0]["bid_count"])
	assert.Equal(t, true, entries[0]["published"])
	assert.Contains(t, entries[0], "time")
}

func TestNew_Source(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	logger.Info("with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_Console(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", writer: output})
	require.NoError(t, err)

	logger.Info("server started", slog.Int("port", 9000))

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "server started")
	assert.Contains(t, output.String(), "port=9000")
}

func TestNew_UnknownFormatFallsBackToJSON(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "xml", writer: output})
	require.NoError(t, err)

	logger.Info("fallback")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "fallback", entries[0]["msg"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.String("route", "/add-bid"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), "/add-bid")
}

func TestNew_FileOutputUnwritable(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "api.log")})
	assert.Error(t, err)
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLogger_Component(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", writer: output})
	require.NoError(t, err)

	logger.Component("ledger").Info("bid placed")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger", entries[0]["component"])
}
