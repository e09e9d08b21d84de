package domain

import "time"

// Role is the coarse authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string // argon2id PHC encoded
	FullName     string
	Role         Role
	IsActive     bool
	// ExternalID is the opaque correlation id handed to the AWS audit
	// pipeline (goes into the assumed role's trust policy).
	ExternalID string
	Company    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
