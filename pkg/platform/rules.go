package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vantage6/console/pkg/permission"
)

// Client implements permission.Source: the evaluator pulls the full rule
// catalog, the principal's detail, and per-role member rules through the
// methods in this file.
var _ permission.Source = (*Client)(nil)

// RuleCatalog returns every rule known to the platform server.
func (c *Client) RuleCatalog(ctx context.Context) ([]permission.Rule, error) {
	raw, err := list[ruleJSON](ctx, c, "/api/rule", nil)
	if err != nil {
		return nil, err
	}
	return convertRules(raw)
}

// Principal returns the user with their direct rules and role memberships.
func (c *Client) Principal(ctx context.Context, userID int64) (*permission.User, error) {
	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Permission(), nil
}

// RoleRules returns the member rules of one role.
func (c *Client) RoleRules(ctx context.Context, roleID int64) ([]permission.Rule, error) {
	raw, err := list[ruleJSON](ctx, c, fmt.Sprintf("/api/role/%d/rule", roleID), nil)
	if err != nil {
		return nil, err
	}
	return convertRules(raw)
}

// ListRoles returns roles, optionally restricted to one organization
// (organizationID 0 lists all roles visible to the caller).
func (c *Client) ListRoles(ctx context.Context, organizationID int64) ([]permission.Role, error) {
	query := intQuery("organization_id", organizationID)
	raw, err := list[roleJSON](ctx, c, "/api/role", query)
	if err != nil {
		return nil, err
	}
	roles := make([]permission.Role, 0, len(raw))
	for _, r := range raw {
		role, err := r.convert()
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// GetRole returns a single role with its member rules resolved.
func (c *Client) GetRole(ctx context.Context, id int64) (*permission.Role, error) {
	var raw roleJSON
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/role/%d", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	role, err := raw.convert()
	if err != nil {
		return nil, err
	}
	if len(role.Rules) == 0 {
		if role.Rules, err = c.RoleRules(ctx, id); err != nil {
			return nil, err
		}
	}
	return &role, nil
}

// RoleSpec is the mutable part of a role.
type RoleSpec struct {
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	OrganizationID *int64  `json:"organization_id,omitempty"`
	RuleIDs        []int64 `json:"rules"`
}

// CreateRole creates a role from a spec.
func (c *Client) CreateRole(ctx context.Context, spec RoleSpec) (*permission.Role, error) {
	var raw roleJSON
	if err := c.do(ctx, http.MethodPost, "/api/role", nil, spec, &raw); err != nil {
		return nil, err
	}
	role, err := raw.convert()
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole patches a role.
func (c *Client) UpdateRole(ctx context.Context, id int64, spec RoleSpec) (*permission.Role, error) {
	var raw roleJSON
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/role/%d", id), nil, spec, &raw); err != nil {
		return nil, err
	}
	role, err := raw.convert()
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/role/%d", id), nil, nil, nil)
}
