package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated requester resolved from a session token.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // 'restricted', 'member', 'admin'
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role constants for access tiers, from most to least restricted.
// Restricted users see only explicitly granted tables, members see any
// visible table, admins additionally bypass visibility flags and get the
// elevated export ceiling.
const (
	RoleRestricted = "restricted"
	RoleMember     = "member"
	RoleAdmin      = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleRestricted, RoleMember, RoleAdmin}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsElevatedRole reports whether the role qualifies for the elevated
// export ceiling.
func IsElevatedRole(role string) bool {
	return role == RoleAdmin
}
