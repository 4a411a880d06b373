package logger_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rezonia/trendyol-invoicer/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, logger.ParseLevel(tt.in))
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, &buf)

	log.Debug("hidden")
	log.Info("order processed", zap.Int64("order_id", 42))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "order processed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(42), entry["order_id"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(logger.DefaultConfig(), &buf)

	log.Warn("rate limited", zap.String("service", "oblio"))
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "rate limited")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	cfg := logger.ServerConfig()
	cfg.Output = path

	log, err := logger.New(cfg)
	require.NoError(t, err)
	log.Info("written")
	require.NoError(t, log.Sync())
	assert.FileExists(t, path)
}

func TestNew_BadFileOutput(t *testing.T) {
	cfg := logger.DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "dir", "run.log")

	_, err := logger.New(cfg)
	assert.Error(t, err)
}
