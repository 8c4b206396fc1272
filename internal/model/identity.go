package model

// Role names carried in access tokens.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Identity is an already-authenticated caller.
type Identity struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

// IsAdmin reports whether the identity holds the elevated role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the identity may read a record owned by owner.
func (i Identity) CanAccess(owner string) bool {
	if i.IsAdmin() {
		return true
	}
	return i.Subject != "" && i.Subject == owner
}
