package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	// Parse JSON output
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "value", logEntry["key"])
	assert.Equal(t, "INFO", logEntry["level"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  "info",
		Format: "text",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestSetup_LogLevels(t *testing.T) {
	tests := []struct {
		level     string
		shouldLog bool
		logFunc   func(ctx context.Context, msg string, args ...any)
	}{
		{"debug", true, Debug},
		{"info", true, Info},
		{"warn", true, Warn},
		{"error", true, Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(Config{
				Level:  tt.level,
				Format: "json",
				Output: &buf,
			})

			tt.logFunc(context.Background(), "test")

			if tt.shouldLog {
				assert.NotEmpty(t, buf.String())
			}
		})
	}
}

func TestWithWatchID(t *testing.T) {
	ctx := context.Background()
	ctx = WithWatchID(ctx, "watch-123")

	watchID, ok := ctx.Value(WatchIDKey).(string)
	assert.True(t, ok)
	assert.Equal(t, "watch-123", watchID)
}

func TestWithUserID(t *testing.T) {
	ctx := context.Background()
	ctx = WithUserID(ctx, 456)

	userID, ok := ctx.Value(UserIDKey).(int64)
	assert.True(t, ok)
	assert.Equal(t, int64(456), userID)
}

func TestWithASIN(t *testing.T) {
	ctx := context.Background()
	ctx = WithASIN(ctx, "B000000001")

	asin, ok := ctx.Value(ASINKey).(string)
	assert.True(t, ok)
	assert.Equal(t, "B000000001", asin)
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	ctx := context.Background()
	ctx = WithWatchID(ctx, "watch-123")
	ctx = WithUserID(ctx, 456)

	logger := Logger(ctx)
	logger.Info("test with context")

	output := buf.String()
	assert.Contains(t, output, "watch-123")
	assert.Contains(t, output, "456")
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	ctx := context.Background()
	ctx = WithWatchID(ctx, "watch-123")

	Audit(ctx, "watch_created", "mode", "realtime")

	output := buf.String()
	assert.Contains(t, output, "AUDIT")
	assert.Contains(t, output, "watch_created")
	assert.Contains(t, output, "realtime")
	assert.Contains(t, output, "watch-123")
}

func TestContextHandler_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	ctx := context.Background()
	ctx = WithASIN(ctx, "B000000001")

	Info(ctx, "test message")

	// The context values should be in the output
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var logEntry map[string]interface{}
	err := json.Unmarshal([]byte(lines[0]), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "B000000001", logEntry["asin"])
}
