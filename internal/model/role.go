package model

import "github.com/google/uuid"

// Role names stored in user_roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether name is a known role.
func ValidRole(name string) bool {
	return name == RoleAdmin || name == RoleUser
}

// UserRole maps a user to its single role.
type UserRole struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}
