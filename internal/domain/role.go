package domain

// Role is a closed, non-hierarchical authorization class. Routes authorize by
// explicit set membership, never by rank comparison.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleOperator   Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOperator:
		return true
	default:
		return false
	}
}

// Invitable reports whether the role may be granted through an invite.
// super_admin accounts are only ever created by the seed tool.
func (r Role) Invitable() bool {
	return r == RoleAdmin || r == RoleOperator
}
