package model

// Role names as carried in access tokens and in the user directory.
const (
	RoleAdmin      = "admin"
	RoleManagement = "management"
	RoleStaff      = "staff"
	RoleStudent    = "student"
)

// User is the read-only directory view of an account. Authentication
// data lives with the identity provider and never reaches this service.
type User struct {
	ID       uint64 `json:"id"`        // users.id
	FullName string `json:"full_name"` // users.full_name
	Role     string `json:"role"`      // users.role
	Gender   Gender `json:"gender"`    // users.gender
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID uint64
	Role   string
}

// IsPrivileged reports whether the actor may run administrative
// transitions (approve, renew, terminate, confirm).
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleManagement
}

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// IsStaff reports whether the actor belongs to the maintenance crew.
func (a Actor) IsStaff() bool { return a.Role == RoleStaff }

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManagement, RoleStaff, RoleStudent:
		return true
	}
	return false
}
