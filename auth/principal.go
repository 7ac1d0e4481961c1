package auth

import (
	"fmt"
	"strings"
)

// Role is the authorization level carried by a token
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleReader Role = "Reader"
)

// ParseRole accepts a role name case-insensitively
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "reader":
		return RoleReader, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Allows reports whether r satisfies any of the wanted roles.
// Admin satisfies every role.
func (r Role) Allows(wanted ...Role) bool {
	if r == RoleAdmin {
		return true
	}
	for _, w := range wanted {
		if r == w {
			return true
		}
	}
	return false
}

// Principal is an authenticated caller
type Principal struct {
	Username string
	Role     Role
}
