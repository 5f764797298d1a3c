package audit

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileLogger(t *testing.T) *FileLogger {
	t.Helper()
	logger, err := NewFileLogger(FileLoggerConfig{
		Path: filepath.Join(t.TempDir(), "audit.log"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestFileLoggerWritesJSONLines(t *testing.T) {
	logger := newTestFileLogger(t)
	ctx := context.Background()

	userID := int64(5)
	require.NoError(t, logger.LogAuthentication(ctx, EventTypeAuthLogin, &userID, "alice", EventStatusSuccess, "console login"))
	require.NoError(t, logger.LogDataMutation(ctx, EventTypeDataNodeCreate, &userID, ResourceTypeNode, "17", "node registered"))

	events, err := logger.ReadLogs(0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventTypeAuthLogin, events[0].EventType)
	assert.Equal(t, "alice", events[0].Username)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, int64(5), *events[0].UserID)

	assert.Equal(t, EventTypeDataNodeCreate, events[1].EventType)
	assert.Equal(t, ResourceTypeNode, events[1].ResourceType)
	assert.Equal(t, "17", events[1].ResourceID)
}

func TestFileLoggerHTTPRequestStatus(t *testing.T) {
	logger := newTestFileLogger(t)
	ctx := context.Background()

	r := httptest.NewRequest("POST", "/api/node", nil)
	require.NoError(t, logger.LogHTTPRequest(ctx, r, 403, 0))

	events, err := logger.ReadLogs(0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventStatusDenied, events[0].Status)
	assert.Equal(t, 403, events[0].StatusCode)
	assert.Equal(t, "/api/node", events[0].Path)
}

func TestFileLoggerRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:     filepath.Join(dir, "audit.log"),
		Rotate:   true,
		MaxSize:  128, // tiny, force rotation quickly
		MaxFiles: 2,
	})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		require.NoError(t, logger.LogAuthentication(ctx, EventTypeAuthLogin, nil, "alice", EventStatusSuccess, "login"))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)
	assert.LessOrEqual(t, len(rotated), 3)
}
