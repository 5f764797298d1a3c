package platform

import (
	"time"

	"github.com/pkg/errors"

	"github.com/vantage6/console/pkg/permission"
)

// Organization is a member institution of the platform.
type Organization struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	Country   string `json:"country,omitempty"`
	Domain    string `json:"domain,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
}

// Collaboration is a group of organizations computing together.
type Collaboration struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Encrypted     bool           `json:"encrypted"`
	Organizations []Organization `json:"organizations,omitempty"`
}

// OrganizationIDs returns the ids of the collaboration's member
// organizations, in member order.
func (c Collaboration) OrganizationIDs() []int64 {
	ids := make([]int64, len(c.Organizations))
	for i, org := range c.Organizations {
		ids[i] = org.ID
	}
	return ids
}

// Node statuses as reported by the platform.
const (
	NodeStatusOnline  = "online"
	NodeStatusOffline = "offline"
)

// Node is a compute node owned by one organization within one collaboration.
type Node struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	CollaborationID int64      `json:"collaboration_id"`
	OrganizationID  int64      `json:"organization_id"`
	Status          string     `json:"status"`
	IP              string     `json:"ip,omitempty"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
}

// Task is a unit of federated work submitted to a collaboration.
type Task struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Image           string    `json:"image"`
	CollaborationID int64     `json:"collaboration_id"`
	InitOrgID       int64     `json:"init_org_id"`
	InitUserID      int64     `json:"init_user_id"`
	Status          string    `json:"status"`
	Databases       []string  `json:"databases,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Run is one node's execution of a task.
type Run struct {
	ID             int64      `json:"id"`
	TaskID         int64      `json:"task_id"`
	OrganizationID int64      `json:"organization_id"`
	NodeID         int64      `json:"node_id"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// AlgorithmStore is a registry of approved algorithm images, linked to one or
// all collaborations.
type AlgorithmStore struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	URL               string `json:"url"`
	CollaborationID   *int64 `json:"collaboration_id,omitempty"`
	AllCollaborations bool   `json:"all_collaborations"`
}

// User is a platform account, including the authorization data the
// permission evaluator consumes.
type User struct {
	ID             int64             `json:"id"`
	Username       string            `json:"username"`
	Email          string            `json:"email,omitempty"`
	FirstName      string            `json:"firstname,omitempty"`
	LastName       string            `json:"lastname,omitempty"`
	OrganizationID int64             `json:"organization_id"`
	Rules          []permission.Rule `json:"rules,omitempty"`
	Roles          []permission.Role `json:"roles,omitempty"`
}

// Permission converts the user into the principal view the evaluator
// understands.
func (u *User) Permission() *permission.User {
	return &permission.User{
		ID:             u.ID,
		Username:       u.Username,
		OrganizationID: u.OrganizationID,
		Rules:          u.Rules,
		Roles:          u.Roles,
	}
}

// ruleJSON is the wire form of a rule; the three categorical fields arrive as
// strings and are validated here, at the ingestion boundary, so that an
// unknown value is an error instead of a silently unmatched query later.
type ruleJSON struct {
	ID        int64  `json:"id"`
	Resource  string `json:"resource"`
	Scope     string `json:"scope"`
	Operation string `json:"operation"`
}

func (r ruleJSON) convert() (permission.Rule, error) {
	resource, err := permission.ParseResource(r.Resource)
	if err != nil {
		return permission.Rule{}, errors.Wrapf(err, "rule %d", r.ID)
	}
	scope, err := permission.ParseScope(r.Scope)
	if err != nil {
		return permission.Rule{}, errors.Wrapf(err, "rule %d", r.ID)
	}
	operation, err := permission.ParseOperation(r.Operation)
	if err != nil {
		return permission.Rule{}, errors.Wrapf(err, "rule %d", r.ID)
	}
	return permission.Rule{ID: r.ID, Resource: resource, Scope: scope, Operation: operation}, nil
}

func convertRules(raw []ruleJSON) ([]permission.Rule, error) {
	rules := make([]permission.Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := r.convert()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// roleJSON is the wire form of a role. The platform omits member rules from
// nested role listings; those arrive as empty stubs the evaluator resolves
// with a per-role fetch.
type roleJSON struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	OrganizationID *int64     `json:"organization_id,omitempty"`
	Rules          []ruleJSON `json:"rules,omitempty"`
}

func (r roleJSON) convert() (permission.Role, error) {
	rules, err := convertRules(r.Rules)
	if err != nil {
		return permission.Role{}, errors.Wrapf(err, "role %q", r.Name)
	}
	return permission.Role{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		OrganizationID: r.OrganizationID,
		Rules:          rules,
	}, nil
}

// userJSON is the wire form of a user.
type userJSON struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstname"`
	LastName       string     `json:"lastname"`
	OrganizationID int64      `json:"organization_id"`
	Rules          []ruleJSON `json:"rules"`
	Roles          []roleJSON `json:"roles"`
}

func (u userJSON) convert() (*User, error) {
	rules, err := convertRules(u.Rules)
	if err != nil {
		return nil, errors.Wrapf(err, "user %q", u.Username)
	}
	roles := make([]permission.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		role, err := r.convert()
		if err != nil {
			return nil, errors.Wrapf(err, "user %q", u.Username)
		}
		roles = append(roles, role)
	}
	return &User{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		OrganizationID: u.OrganizationID,
		Rules:          rules,
		Roles:          roles,
	}, nil
}
