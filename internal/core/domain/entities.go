package domain

// Role represents user role in the system
type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may manage circulation and catalog data
func (r Role) IsStaff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// ValidRole reports whether s names a known role
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleMember, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}
