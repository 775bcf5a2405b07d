package domain

import "fmt"

// Role is the authorization role assigned to an identity. Roles form a
// strict total order: USER < ADMIN < SUPERADMIN. A higher role always
// includes the privileges of every lower role.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// DefaultRole is assigned when an identity has no record anywhere.
const DefaultRole = RoleUser

// Level returns the numeric hierarchy level used for privilege
// comparisons. Unknown roles have level 0 and satisfy nothing.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperadmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// Satisfies reports whether r grants at least the privileges of min.
func (r Role) Satisfies(min Role) bool {
	return r.Level() >= min.Level()
}

// CanManage reports whether r may assign or replace target. Managing a
// role requires strictly outranking it, so lateral and upward changes
// are always rejected.
func (r Role) CanManage(target Role) bool {
	return r.Level() > target.Level()
}

// ParseRole converts a stored or user-supplied string into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return role, nil
}
