package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LouYuanbo1/watchagent/internal/config"
)

func TestConsoleLoggerColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{
		Level:       "debug",
		Format:      "console",
		ServiceName: "watchagent",
		Colors:      config.ColorConfig{Info: "green", Error: "red"},
	}, zapcore.AddSync(&buf))

	logger.Info("Dashboard loaded successfully.")
	logger.Error("Failed after maximum retries.")

	out := buf.String()
	assert.Contains(t, out, colorMap["green"]+"INFO"+colorReset)
	assert.Contains(t, out, colorMap["red"]+"ERROR"+colorReset)
	assert.Contains(t, out, "watchagent.")
	assert.Contains(t, out, "Dashboard loaded successfully.")
}

func TestConsoleLoggerWithoutColors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Level: "info", Format: "console"}, zapcore.AddSync(&buf))
	logger.Warn("plain")
	assert.Contains(t, buf.String(), "WARN")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Level: "info", Format: "json", ServiceName: "watchagent"}, zapcore.AddSync(&buf))
	logger.Warn("blocked", zap.Int("attempt", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "watchagent", entry["logger"])
	assert.Equal(t, "blocked", entry["msg"])
	assert.EqualValues(t, 2, entry["attempt"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	logger.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFileSink(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "watchagent.log")
	var buf bytes.Buffer
	logger := NewLogger(config.Logger{Level: "info", Format: "console", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&buf))
	logger.Info("written to file")
	Sync(logger)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "file sink should always be json")
	assert.Equal(t, "written to file", entry["msg"])
}
