package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLogout      EventType = "auth.logout"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"

	// Authorization events
	EventTypeAuthzDenied     EventType = "authz.denied"
	EventTypeAuthzRoleChange EventType = "authz.role_change"

	// Data mutation events, one per console-managed entity
	EventTypeDataOrgCreate    EventType = "data.organization_create"
	EventTypeDataOrgUpdate    EventType = "data.organization_update"
	EventTypeDataOrgDelete    EventType = "data.organization_delete"
	EventTypeDataCollabCreate EventType = "data.collaboration_create"
	EventTypeDataCollabUpdate EventType = "data.collaboration_update"
	EventTypeDataCollabDelete EventType = "data.collaboration_delete"
	EventTypeDataNodeCreate   EventType = "data.node_create"
	EventTypeDataNodeUpdate   EventType = "data.node_update"
	EventTypeDataNodeDelete   EventType = "data.node_delete"
	EventTypeDataUserCreate   EventType = "data.user_create"
	EventTypeDataUserUpdate   EventType = "data.user_update"
	EventTypeDataUserDelete   EventType = "data.user_delete"
	EventTypeDataRoleCreate   EventType = "data.role_create"
	EventTypeDataRoleUpdate   EventType = "data.role_update"
	EventTypeDataRoleDelete   EventType = "data.role_delete"
	EventTypeDataTaskCreate   EventType = "data.task_create"
	EventTypeDataTaskDelete   EventType = "data.task_delete"
	EventTypeDataTaskKill     EventType = "data.task_kill"
	EventTypeDataStoreCreate  EventType = "data.algorithm_store_create"
	EventTypeDataStoreDelete  EventType = "data.algorithm_store_delete"

	// Read events for sensitive data
	EventTypeAccessRunLog EventType = "access.run_log"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeOrganization   ResourceType = "organization"
	ResourceTypeCollaboration  ResourceType = "collaboration"
	ResourceTypeNode           ResourceType = "node"
	ResourceTypeUser           ResourceType = "user"
	ResourceTypeRole           ResourceType = "role"
	ResourceTypeTask           ResourceType = "task"
	ResourceTypeRun            ResourceType = "run"
	ResourceTypeAlgorithmStore ResourceType = "algorithm_store"
	ResourceTypeSession        ResourceType = "session"
)

// Event represents a single audit log entry
type Event struct {
	// Core fields
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID         *int64 `json:"user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	// Time range
	StartTime *time.Time
	EndTime   *time.Time

	// Actor filters
	UserID   *int64
	Username string

	// Event filters
	EventTypes []EventType
	Status     *EventStatus

	// Resource filters
	ResourceType ResourceType
	ResourceID   string

	// Pagination
	Limit  int
	Offset int
}
