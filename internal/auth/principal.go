package auth

import "reimburse/internal/model"

// Principal is the authenticated caller of an operation.
type Principal struct {
	Username string
	Role     model.Role
}

// IsHR reports whether the caller holds the HR role.
func (p Principal) IsHR() bool {
	return p.Role == model.RoleHR
}

// IsEmployee reports whether the caller holds the Employee role.
func (p Principal) IsEmployee() bool {
	return p.Role == model.RoleEmployee
}

// Owns reports whether the caller is the owner named by username.
func (p Principal) Owns(username string) bool {
	return p.Username != "" && p.Username == username
}

// CanRead reports whether the caller may read data owned by username:
// HR reads everything, employees only their own.
func (p Principal) CanRead(username string) bool {
	return p.IsHR() || p.Owns(username)
}
