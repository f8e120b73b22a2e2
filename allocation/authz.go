package allocation

import "context"

// =============================================================================
// AUTHORIZATION ORACLE - Role lookup, owned by the surrounding auth layer
// =============================================================================

// Role names consumed as opaque facts. The engine asks "does actor have
// role R" and nothing more; how roles are granted is not its concern.
type Role string

const (
	// RoleApprover may approve or reject Requested allocations.
	RoleApprover Role = "CGO"

	// RoleSuperuser passes every permission check, including writes to
	// terminal records.
	RoleSuperuser Role = "System Manager"
)

// Authorizer answers role-membership questions for actors.
type Authorizer interface {
	HasRole(ctx context.Context, actor string, role Role) bool
}

// StaticAuthorizer is a fixed actor-to-roles table, useful for tests and
// single-process deployments.
type StaticAuthorizer struct {
	Roles map[string][]Role
}

func (a *StaticAuthorizer) HasRole(_ context.Context, actor string, role Role) bool {
	for _, r := range a.Roles[actor] {
		if r == role {
			return true
		}
	}
	return false
}
