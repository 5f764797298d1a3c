package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileLogger implements audit logging to a newline-delimited JSON file
type FileLogger struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	encoder  *json.Encoder
	rotate   bool
	maxSize  int64 // Max file size in bytes before rotation
	maxFiles int   // Max number of rotated files to keep
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	Path     string // Path of the active audit log file
	Rotate   bool   // Enable log rotation
	MaxSize  int64  // Max file size in bytes (default: 100MB)
	MaxFiles int    // Max number of rotated files to keep (default: 10)
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	logger := &FileLogger{
		path:     config.Path,
		rotate:   config.Rotate,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
	}

	if logger.maxSize == 0 {
		logger.maxSize = 100 * 1024 * 1024
	}
	if logger.maxFiles == 0 {
		logger.maxFiles = 10
	}

	if err := logger.openLogFile(); err != nil {
		return nil, err
	}

	return logger, nil
}

// openLogFile opens or creates the current log file
func (l *FileLogger) openLogFile() error {
	if l.rotate {
		if info, err := os.Stat(l.path); err == nil && info.Size() >= l.maxSize {
			if err := l.rotateFile(); err != nil {
				return fmt.Errorf("failed to rotate log file: %w", err)
			}
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}

	l.file = file
	l.encoder = json.NewEncoder(file)

	return nil
}

// rotateFile rotates the log file
func (l *FileLogger) rotateFile() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	timestamp := time.Now().Format("2006-01-02-15-04-05")
	ext := filepath.Ext(l.path)
	rotated := fmt.Sprintf("%s-%s%s", l.path[:len(l.path)-len(ext)], timestamp, ext)

	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	if err := l.cleanupOldFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to cleanup old audit logs: %v\n", err)
	}

	return nil
}

// cleanupOldFiles removes rotated files beyond the retention limit
func (l *FileLogger) cleanupOldFiles() error {
	ext := filepath.Ext(l.path)
	pattern := fmt.Sprintf("%s-*%s", l.path[:len(l.path)-len(ext)], ext)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	if len(files) > l.maxFiles {
		// Timestamped names sort chronologically
		sort.Strings(files)
		for _, file := range files[:len(files)-l.maxFiles] {
			if err := os.Remove(file); err != nil {
				fmt.Fprintf(os.Stderr, "failed to remove old audit log %s: %v\n", file, err)
			}
		}
	}

	return nil
}

// Log logs an audit event to the file
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotate && l.file != nil {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.maxSize {
			if err := l.openLogFile(); err != nil {
				return fmt.Errorf("failed to rotate log file: %w", err)
			}
		}
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// LogAuthentication logs an authentication event
func (l *FileLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, status)
	event.UserID = userID
	event.Username = username
	event.Message = message
	event.ResourceType = ResourceTypeSession

	return l.Log(ctx, event)
}

// LogAuthorization logs an authorization event
func (l *FileLogger) LogAuthorization(ctx context.Context, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, EventTypeAuthzDenied, status)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return l.Log(ctx, event)
}

// LogDataMutation logs a data mutation event
func (l *FileLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return l.Log(ctx, event)
}

// LogHTTPRequest logs an HTTP request
func (l *FileLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error {
	status := EventStatusSuccess
	if statusCode >= 400 {
		status = EventStatusFailure
	}
	if statusCode == http.StatusForbidden {
		status = EventStatusDenied
	}

	event := buildBaseEvent(ctx, r, eventTypeForRequest(r), status)
	event.StatusCode = statusCode
	event.Metadata["duration_ms"] = duration.Milliseconds()

	return l.Log(ctx, event)
}

// Close closes the file logger
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}

	return nil
}

// ReadLogs reads up to count audit events from the active file
func (l *FileLogger) ReadLogs(count int) ([]*Event, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var events []*Event
	decoder := json.NewDecoder(file)

	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode audit log entry: %w", err)
		}
		events = append(events, &event)

		if count > 0 && len(events) >= count {
			break
		}
	}

	return events, nil
}
