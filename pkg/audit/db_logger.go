package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBLogger implements audit logging to a local SQLite database. The console
// owns no platform data, but its own audit trail is durable and queryable.
type DBLogger struct {
	db *sql.DB
}

// OpenDBLogger opens (or creates) the SQLite database at path and returns a
// logger backed by it.
func OpenDBLogger(path string) (*DBLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	logger, err := NewDBLogger(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return logger, nil
}

// NewDBLogger creates a database-backed audit logger on an existing handle
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{db: db}

	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}

	return logger, nil
}

// ensureTable creates the audit_logs table if it doesn't exist
func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		event_type TEXT NOT NULL,
		status TEXT NOT NULL,
		user_id INTEGER,
		username TEXT,
		organization_id INTEGER,
		resource_type TEXT,
		resource_id TEXT,
		ip_address TEXT,
		user_agent TEXT,
		request_id TEXT,
		method TEXT,
		path TEXT,
		status_code INTEGER,
		message TEXT,
		error_message TEXT,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_status ON audit_logs(status);
	`

	_, err := l.db.Exec(query)
	return err
}

// Log logs an audit event to the database
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	var err error

	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (
			timestamp, event_type, status,
			user_id, username, organization_id,
			resource_type, resource_id,
			ip_address, user_agent, request_id,
			method, path, status_code,
			message, error_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := l.db.ExecContext(ctx, query,
		event.Timestamp, event.EventType, event.Status,
		event.UserID, event.Username, event.OrganizationID,
		event.ResourceType, event.ResourceID,
		event.IPAddress, event.UserAgent, event.RequestID,
		event.Method, event.Path, event.StatusCode,
		event.Message, event.ErrorMessage, string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}

	return nil
}

// LogAuthentication logs an authentication event
func (l *DBLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, status)
	event.UserID = userID
	event.Username = username
	event.Message = message
	event.ResourceType = ResourceTypeSession

	return l.Log(ctx, event)
}

// LogAuthorization logs an authorization event
func (l *DBLogger) LogAuthorization(ctx context.Context, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, nil, EventTypeAuthzDenied, status)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return l.Log(ctx, event)
}

// LogDataMutation logs a data mutation event
func (l *DBLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, message string) error {
	event := buildBaseEvent(ctx, nil, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message

	return l.Log(ctx, event)
}

// LogHTTPRequest logs an HTTP request
func (l *DBLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration) error {
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

// Close closes the database handle
func (l *DBLogger) Close() error {
	return l.db.Close()
}

// Search returns audit events matching the filter, newest first.
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var conds []string
	var args []interface{}

	if filter.StartTime != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = "?"
			args = append(args, string(et))
		}
		conds = append(conds, fmt.Sprintf("event_type IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ResourceType != "" {
		conds = append(conds, "resource_type = ?")
		args = append(args, string(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		conds = append(conds, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}

	query := `SELECT id, timestamp, event_type, status, user_id, username, organization_id,
		resource_type, resource_id, ip_address, user_agent, request_id,
		method, path, status_code, message, error_message, metadata
		FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var event Event
		var userID, orgID sql.NullInt64
		var metadata sql.NullString

		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.EventType, &event.Status,
			&userID, &event.Username, &orgID,
			&event.ResourceType, &event.ResourceID,
			&event.IPAddress, &event.UserAgent, &event.RequestID,
			&event.Method, &event.Path, &event.StatusCode,
			&event.Message, &event.ErrorMessage, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if userID.Valid {
			event.UserID = &userID.Int64
		}
		if orgID.Valid {
			event.OrganizationID = &orgID.Int64
		}
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &event.Metadata)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
