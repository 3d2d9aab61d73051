// Package authz provides authorization primitives for the registry server.
// Callers are assigned one of three ordered roles; route groups declare the
// minimum role they require. Identity comes from trusted proxy headers or
// from a JWT bearer token, and a no-op mode exists for development.
package authz

import "fmt"

// Role is the permission level assigned to a caller.
type Role string

const (
	// RoleViewer can read assets, versions, branches, diffs and history.
	RoleViewer Role = "viewer"
	// RoleOperator can additionally import versions, create branches and export.
	RoleOperator Role = "operator"
	// RoleApprover can additionally change statuses, promote and archive.
	RoleApprover Role = "approver"
)

// roleRank orders roles so that a higher role implies the lower ones.
var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleApprover: 3,
}

// ParseRole converts a string to a Role. Unknown values are rejected so a
// typo in configuration fails loudly instead of granting viewer silently.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleViewer, RoleOperator, RoleApprover:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Allows reports whether a caller holding r meets the required role.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required]
}
