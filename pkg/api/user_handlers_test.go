package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

func TestUpdateUserPlainFieldsAllowed(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	// no role or rule changes: the organization edit rule is enough
	rec := doJSON(t, s, http.MethodPatch, "/api/user/8", token,
		platform.UserSpec{Email: "carol@example.org"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateUserBlocksEscalationThroughTarget(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	// bob holds node:global:edit, which alice does not. Touching his rules
	// would preserve a permission alice cannot grant.
	rec := doJSON(t, s, http.MethodPatch, "/api/user/6", token,
		platform.UserSpec{RuleIDs: []int64{1}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "holds permissions")
}

func TestUpdateUserBlocksAssigningUnheldRule(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	// carol's closure is within alice's, but rule 10 is not alice's to give
	rec := doJSON(t, s, http.MethodPatch, "/api/user/8", token,
		platform.UserSpec{RuleIDs: []int64{10}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateUserAllowsAssigningHeldRules(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	rec := doJSON(t, s, http.MethodPatch, "/api/user/8", token,
		platform.UserSpec{RuleIDs: []int64{1, 2}})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateUserBlocksAssigningUnassignableRole(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	// role 21 contains node:global:edit
	rec := doJSON(t, s, http.MethodPatch, "/api/user/8", token,
		platform.UserSpec{RoleIDs: []int64{21}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not assignable")
}

func TestGetOwnUserAlwaysAllowed(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/user/5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user platform.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
}

func TestAssignableRolesFiltering(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/role/assignable?organization_id=7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var roles []permission.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))

	// role 21 needs a rule alice lacks, 22 is reserved, 23 belongs to
	// another organization
	require.Len(t, roles, 1)
	assert.Equal(t, "researcher-basic", roles[0].Name)
}
