package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		wantFile bool
	}{
		{name: "console", output: "console", wantFile: false},
		{name: "file", output: "file", wantFile: true},
		{name: "both", output: "both", wantFile: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "logs", "app.log")

			logger, closeFn, err := NewLogger(config.LoggingConfig{
				Level:    "info",
				Format:   "json",
				Output:   tt.output,
				FilePath: logFile,
			})
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.NotNil(t, closeFn)

			logger.Info("dataset loaded", "rows", 3)
			require.NoError(t, closeFn())

			_, statErr := os.Stat(logFile)
			if tt.wantFile {
				require.NoError(t, statErr)
				data, err := os.ReadFile(logFile)
				require.NoError(t, err)
				assert.Contains(t, string(data), "dataset loaded")
			} else {
				assert.True(t, os.IsNotExist(statErr))
			}
		})
	}
}

func TestTraceHandlerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.With("component", "test").InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	// an existing id is preserved
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	LoggerFromContext(WithTraceID(context.Background(), "abc"), base).Info("x")
	assert.Contains(t, buf.String(), `"trace_id":"abc"`)

	assert.NotNil(t, LoggerFromContext(context.Background(), nil))
}
