package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// intQuery builds a single-parameter query, omitting zero values.
func intQuery(key string, v int64) url.Values {
	if v == 0 {
		return nil
	}
	q := url.Values{}
	q.Set(key, strconv.FormatInt(v, 10))
	return q
}

// --- organizations ---

// ListOrganizations returns all organizations visible to the caller.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return list[Organization](ctx, c, "/api/organization", nil)
}

// GetOrganization returns one organization.
func (c *Client) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	var org Organization
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/organization/%d", id), nil, nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// CreateOrganization registers a new organization.
func (c *Client) CreateOrganization(ctx context.Context, org Organization) (*Organization, error) {
	var created Organization
	if err := c.do(ctx, http.MethodPost, "/api/organization", nil, org, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateOrganization patches an organization.
func (c *Client) UpdateOrganization(ctx context.Context, id int64, org Organization) (*Organization, error) {
	var updated Organization
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/organization/%d", id), nil, org, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOrganization removes an organization.
func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/organization/%d", id), nil, nil, nil)
}

// --- collaborations ---

// ListCollaborations returns collaborations, optionally restricted to one
// organization's memberships.
func (c *Client) ListCollaborations(ctx context.Context, organizationID int64) ([]Collaboration, error) {
	return list[Collaboration](ctx, c, "/api/collaboration", intQuery("organization_id", organizationID))
}

// GetCollaboration returns one collaboration including member organizations.
func (c *Client) GetCollaboration(ctx context.Context, id int64) (*Collaboration, error) {
	var collab Collaboration
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/collaboration/%d", id), nil, nil, &collab); err != nil {
		return nil, err
	}
	return &collab, nil
}

// CollaborationSpec is the mutable part of a collaboration.
type CollaborationSpec struct {
	Name            string  `json:"name"`
	Encrypted       bool    `json:"encrypted"`
	OrganizationIDs []int64 `json:"organization_ids"`
}

// CreateCollaboration creates a collaboration.
func (c *Client) CreateCollaboration(ctx context.Context, spec CollaborationSpec) (*Collaboration, error) {
	var created Collaboration
	if err := c.do(ctx, http.MethodPost, "/api/collaboration", nil, spec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCollaboration patches a collaboration.
func (c *Client) UpdateCollaboration(ctx context.Context, id int64, spec CollaborationSpec) (*Collaboration, error) {
	var updated Collaboration
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/collaboration/%d", id), nil, spec, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCollaboration removes a collaboration.
func (c *Client) DeleteCollaboration(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/collaboration/%d", id), nil, nil, nil)
}

// --- nodes ---

// ListNodes returns nodes, optionally filtered by collaboration.
func (c *Client) ListNodes(ctx context.Context, collaborationID int64) ([]Node, error) {
	return list[Node](ctx, c, "/api/node", intQuery("collaboration_id", collaborationID))
}

// GetNode returns one node.
func (c *Client) GetNode(ctx context.Context, id int64) (*Node, error) {
	var node Node
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/node/%d", id), nil, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// NodeSpec is the mutable part of a node registration.
type NodeSpec struct {
	Name            string `json:"name"`
	CollaborationID int64  `json:"collaboration_id"`
	OrganizationID  int64  `json:"organization_id"`
}

// CreateNode registers a node; the platform responds with the node including
// its generated API key.
func (c *Client) CreateNode(ctx context.Context, spec NodeSpec) (*Node, error) {
	var created Node
	if err := c.do(ctx, http.MethodPost, "/api/node", nil, spec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateNode patches a node.
func (c *Client) UpdateNode(ctx context.Context, id int64, spec NodeSpec) (*Node, error) {
	var updated Node
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/node/%d", id), nil, spec, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNode removes a node registration.
func (c *Client) DeleteNode(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/node/%d", id), nil, nil, nil)
}

// --- users ---

// ListUsers returns users, optionally restricted to one organization.
func (c *Client) ListUsers(ctx context.Context, organizationID int64) ([]User, error) {
	raw, err := list[userJSON](ctx, c, "/api/user", intQuery("organization_id", organizationID))
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(raw))
	for _, u := range raw {
		converted, err := u.convert()
		if err != nil {
			return nil, err
		}
		users = append(users, *converted)
	}
	return users, nil
}

// GetUser returns one user with direct rules and roles.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var raw userJSON
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/user/%d", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw.convert()
}

// UserSpec is the mutable part of a user account.
type UserSpec struct {
	Username       string  `json:"username,omitempty"`
	Email          string  `json:"email,omitempty"`
	FirstName      string  `json:"firstname,omitempty"`
	LastName       string  `json:"lastname,omitempty"`
	Password       string  `json:"password,omitempty"`
	OrganizationID int64   `json:"organization_id,omitempty"`
	RoleIDs        []int64 `json:"roles,omitempty"`
	RuleIDs        []int64 `json:"rules,omitempty"`
}

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, spec UserSpec) (*User, error) {
	var raw userJSON
	if err := c.do(ctx, http.MethodPost, "/api/user", nil, spec, &raw); err != nil {
		return nil, err
	}
	return raw.convert()
}

// UpdateUser patches a user account, including its role and rule
// assignments.
func (c *Client) UpdateUser(ctx context.Context, id int64, spec UserSpec) (*User, error) {
	var raw userJSON
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/user/%d", id), nil, spec, &raw); err != nil {
		return nil, err
	}
	return raw.convert()
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/user/%d", id), nil, nil, nil)
}

// --- tasks and runs ---

// ListTasks returns tasks, optionally filtered by collaboration.
func (c *Client) ListTasks(ctx context.Context, collaborationID int64) ([]Task, error) {
	return list[Task](ctx, c, "/api/task", intQuery("collaboration_id", collaborationID))
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id int64) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/task/%d", id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskSpec describes a task submission.
type TaskSpec struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Image           string   `json:"image"`
	CollaborationID int64    `json:"collaboration_id"`
	OrganizationIDs []int64  `json:"organization_ids"`
	Databases       []string `json:"databases,omitempty"`
	Input           string   `json:"input,omitempty"`
}

// CreateTask submits a task to a collaboration.
func (c *Client) CreateTask(ctx context.Context, spec TaskSpec) (*Task, error) {
	var created Task
	if err := c.do(ctx, http.MethodPost, "/api/task", nil, spec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTask removes a task and its runs.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/task/%d", id), nil, nil, nil)
}

// KillTask asks the platform to stop a running task on every node.
func (c *Client) KillTask(ctx context.Context, id int64) error {
	body := map[string]int64{"id": id}
	return c.do(ctx, http.MethodPost, "/api/kill/task", nil, body, nil)
}

// TaskRuns returns the per-node runs of a task.
func (c *Client) TaskRuns(ctx context.Context, taskID int64) ([]Run, error) {
	return list[Run](ctx, c, fmt.Sprintf("/api/task/%d/run", taskID), nil)
}

// RunLog returns the captured log of one run.
func (c *Client) RunLog(ctx context.Context, runID int64) (string, error) {
	var out struct {
		Log string `json:"log"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/run/%d/log", runID), nil, nil, &out); err != nil {
		return "", err
	}
	return out.Log, nil
}

// --- algorithm stores ---

// ListAlgorithmStores returns algorithm stores, optionally filtered by
// collaboration.
func (c *Client) ListAlgorithmStores(ctx context.Context, collaborationID int64) ([]AlgorithmStore, error) {
	return list[AlgorithmStore](ctx, c, "/api/algorithmstore", intQuery("collaboration_id", collaborationID))
}

// GetAlgorithmStore returns one algorithm store.
func (c *Client) GetAlgorithmStore(ctx context.Context, id int64) (*AlgorithmStore, error) {
	var store AlgorithmStore
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/algorithmstore/%d", id), nil, nil, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// CreateAlgorithmStore links an algorithm store to a collaboration (or all).
func (c *Client) CreateAlgorithmStore(ctx context.Context, store AlgorithmStore) (*AlgorithmStore, error) {
	var created AlgorithmStore
	if err := c.do(ctx, http.MethodPost, "/api/algorithmstore", nil, store, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAlgorithmStore unlinks an algorithm store.
func (c *Client) DeleteAlgorithmStore(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/algorithmstore/%d", id), nil, nil, nil)
}
