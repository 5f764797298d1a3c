// Package events carries live platform events to connected console clients.
//
// The platform server publishes node and task events on a Redis channel;
// Subscriber bridges that channel into an in-process Hub, and the API layer
// streams each session's view of the Hub out over Server-Sent Events.
package events

import (
	"encoding/json"
	"time"
)

// Type classifies an event.
type Type string

const (
	TypeNodeOnline  Type = "node-online"
	TypeNodeOffline Type = "node-offline"
	TypeTaskCreated Type = "task-created"
	TypeTaskStatus  Type = "task-status"
	TypeTaskLog     Type = "task-log"
	TypeRunResult   Type = "run-result"
)

// Event is one platform event as shown to console clients.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Routing context. OrganizationID and CollaborationID let the API
	// layer filter events per session before streaming.
	OrganizationID  int64 `json:"organization_id,omitempty"`
	CollaborationID int64 `json:"collaboration_id,omitempty"`

	// Subjects, depending on Type.
	NodeID int64 `json:"node_id,omitempty"`
	TaskID int64 `json:"task_id,omitempty"`
	RunID  int64 `json:"run_id,omitempty"`

	// Status carries the new task/run status for task-status and
	// run-result events.
	Status string `json:"status,omitempty"`

	// Message carries log fragments for task-log events.
	Message string `json:"message,omitempty"`
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an event from its wire form.
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
