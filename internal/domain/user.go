package domain

import "time"

// Role determines which operations an account may invoke.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an account that can authenticate against the service.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated identity passed into every service call. The
// core never reads ambient session state; identity and role travel explicitly.
type Actor struct {
	UserID string
	Role   Role
}
