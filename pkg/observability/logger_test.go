package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/contextkeys"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("component", "session").Info("session created")

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "session created", entry["msg"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("should be dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("should be logged")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(assert.AnError).Error("lookup failed")

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, assert.AnError.Error(), entry["error"])

	// nil error must not add a field
	buf.Reset()
	logger.WithError(nil).Info("ok")
	entry = decodeLogLine(t, &buf)
	assert.NotContains(t, entry, "error")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("ERROR"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
	assert.Equal(t, InfoLevel, ParseLogLevel(""))
}

func TestFromContextCarriesRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-1")
	ctx = contextkeys.WithUserID(ctx, "5")

	FromContext(ctx).Info("guarded")

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "5", entry["user_id"])
}
