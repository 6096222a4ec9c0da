// Package rolegate holds the route-group to allowed-roles table. The
// server middleware consumes it for enforcement and the permissions
// endpoint exports it so clients mirror this table instead of maintaining
// their own copy. The client mirror is a UX convenience only; the server
// remains the security boundary.
package rolegate

import "github.com/careconnect/portal-api/internal/types"

// Gate names a guarded route group.
type Gate string

const (
	GateProfile       Gate = "profile"
	GateUserDirectory Gate = "user-directory"
	GateUserStatus    Gate = "user-status"
)

var table = map[Gate][]types.Role{
	GateProfile:       {types.RolePatient, types.RoleDoctor, types.RoleNurse, types.RoleAdmin},
	GateUserDirectory: {types.RoleAdmin},
	GateUserStatus:    {types.RoleAdmin},
}

// AllowedRoles returns the allow-list for a gate. Unknown gates allow
// nothing.
func AllowedRoles(g Gate) []types.Role {
	roles := table[g]
	out := make([]types.Role, len(roles))
	copy(out, roles)
	return out
}

// Allows reports whether the role may pass the gate.
func Allows(g Gate, role types.Role) bool {
	for _, r := range table[g] {
		if r == role {
			return true
		}
	}
	return false
}

// Table returns a serializable copy of the whole allow-list table, keyed
// by gate name.
func Table() map[string][]types.Role {
	out := make(map[string][]types.Role, len(table))
	for gate, roles := range table {
		cp := make([]types.Role, len(roles))
		copy(cp, roles)
		out[string(gate)] = cp
	}
	return out
}
