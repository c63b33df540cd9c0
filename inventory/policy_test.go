package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
)

func TestPolicy_RoleMatrix(t *testing.T) {
	// The whole policy, spelled out. Any change here is a deliberate
	// access-control decision, not a refactor side effect.
	matrix := []struct {
		role    inventory.Role
		op      inventory.Operation
		allowed bool
	}{
		{inventory.RoleAdmin, inventory.OpRegisterDocument, true},
		{inventory.RoleAdmin, inventory.OpRunDistribution, true},
		{inventory.RoleAdmin, inventory.OpReverseExit, true},
		{inventory.RoleAdmin, inventory.OpViewReports, true},
		{inventory.RoleAdmin, inventory.OpManageUsers, true},
		{inventory.RoleAdmin, inventory.OpManageSettings, true},

		{inventory.RoleManager, inventory.OpRegisterDocument, true},
		{inventory.RoleManager, inventory.OpRunDistribution, true},
		{inventory.RoleManager, inventory.OpReverseExit, true},
		{inventory.RoleManager, inventory.OpViewReports, true},
		{inventory.RoleManager, inventory.OpManageUsers, false},
		{inventory.RoleManager, inventory.OpManageSettings, false},

		{inventory.RoleOperator, inventory.OpRegisterDocument, false},
		{inventory.RoleOperator, inventory.OpRunDistribution, true},
		{inventory.RoleOperator, inventory.OpReverseExit, false},
		{inventory.RoleOperator, inventory.OpViewReports, false},
		{inventory.RoleOperator, inventory.OpManageUsers, false},
		{inventory.RoleOperator, inventory.OpManageSettings, false},
	}

	for _, entry := range matrix {
		got := inventory.Allowed(entry.role, entry.op)
		assert.Equal(t, entry.allowed, got, "%s / %s", entry.role, entry.op)
	}
}

func TestPolicy_UnknownRole_DeniedEverything(t *testing.T) {
	assert.False(t, inventory.Allowed(inventory.Role("INTERN"), inventory.OpRunDistribution))
	assert.Empty(t, inventory.Operations(inventory.Role("INTERN")))
}

func TestAuthorize_InactiveUser_Denied(t *testing.T) {
	// GIVEN: An admin whose profile was deactivated
	// WHEN: Authorizing any operation
	// THEN: Denied despite the role

	user := inventory.User{Email: "gone@warehouse.test", Role: inventory.RoleAdmin, Active: false}

	err := inventory.Authorize(user, inventory.OpViewReports)
	var authErr *inventory.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "gone@warehouse.test", authErr.ActorEmail)
	assert.Equal(t, inventory.OpViewReports, authErr.Operation)
}

func TestAuthorize_ActiveUser_AllowedWithinRole(t *testing.T) {
	user := inventory.User{Email: "op@warehouse.test", Role: inventory.RoleOperator, Active: true}

	assert.NoError(t, inventory.Authorize(user, inventory.OpRunDistribution))
	assert.Error(t, inventory.Authorize(user, inventory.OpReverseExit))
}

func TestOperations_StableOrder(t *testing.T) {
	// The operation list feeds the UI; order must be deterministic.
	first := inventory.Operations(inventory.RoleManager)
	second := inventory.Operations(inventory.RoleManager)
	assert.Equal(t, first, second)
	assert.Equal(t, []inventory.Operation{
		inventory.OpRegisterDocument,
		inventory.OpRunDistribution,
		inventory.OpReverseExit,
		inventory.OpViewReports,
	}, first)
}
