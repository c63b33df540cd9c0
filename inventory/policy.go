/*
policy.go - Role-based access policy

PURPOSE:
  Pure mapping from role to the set of operations it may invoke. The engine
  itself does not enforce policy; the boundary (HTTP layer) consults this
  single function before calling into the allocation engine, movement
  recorder, or reversal processor. Any operation outside the actor's set
  fails with an AuthorizationError before any state mutation.

ROLE MATRIX:
  ADMIN     everything, including user management and settings
  MANAGER   document registration, distributions, reports, reversals
  OPERATOR  distributions only

The role is a trusted label, not a verified identity; authentication is
out of scope for this system.
*/
package inventory

// Operation names an action an actor can invoke through the boundary.
type Operation string

const (
	OpRegisterDocument Operation = "register_document"
	OpRunDistribution  Operation = "run_distribution"
	OpReverseExit      Operation = "reverse_exit"
	OpViewReports      Operation = "view_reports"
	OpManageUsers      Operation = "manage_users"
	OpManageSettings   Operation = "manage_settings"
)

// rolePermissions is the whole policy. There is intentionally exactly one
// copy of this table; entry points must not re-implement role checks.
var rolePermissions = map[Role]map[Operation]bool{
	RoleAdmin: {
		OpRegisterDocument: true,
		OpRunDistribution:  true,
		OpReverseExit:      true,
		OpViewReports:      true,
		OpManageUsers:      true,
		OpManageSettings:   true,
	},
	RoleManager: {
		OpRegisterDocument: true,
		OpRunDistribution:  true,
		OpReverseExit:      true,
		OpViewReports:      true,
	},
	RoleOperator: {
		OpRunDistribution: true,
	},
}

// Allowed reports whether the role may invoke the operation.
func Allowed(role Role, op Operation) bool {
	return rolePermissions[role][op]
}

// Operations returns the operations the role may invoke, in a fixed order.
func Operations(role Role) []Operation {
	all := []Operation{
		OpRegisterDocument,
		OpRunDistribution,
		OpReverseExit,
		OpViewReports,
		OpManageUsers,
		OpManageSettings,
	}
	var ops []Operation
	for _, op := range all {
		if Allowed(role, op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// Authorize returns an AuthorizationError when the user may not invoke the
// operation. Inactive users are denied everything.
func Authorize(user User, op Operation) error {
	if !user.Active || !Allowed(user.Role, op) {
		return &AuthorizationError{ActorEmail: user.Email, Role: user.Role, Operation: op}
	}
	return nil
}
