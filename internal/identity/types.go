// Package identity provides the staff caller identity passed explicitly
// into every staff-facing operation.
package identity

import (
	"errors"
	"strings"
)

// Role constants for staff sessions.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ErrMissingIdentity is returned when an operation requires a staff caller but none is present.
var ErrMissingIdentity = errors.New("staff identity required")

// Staff is a validated staff session as supplied by the auth collaborator.
type Staff struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin checks if the staff identity has the admin role.
func (s Staff) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(s.Role), RoleAdmin)
}

// NormalizeRole maps blank or unknown roles to RoleStaff.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return RoleAdmin
	}
	return RoleStaff
}
