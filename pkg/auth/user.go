// Package auth provides user accounts, credential verification, and
// refresh-token minting for the security subsystem.
package auth

import (
	"fmt"
	"time"
)

// Role controls what a user may do once authenticated.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of a user account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
)

// User is an account known to the platform. PasswordHash is a bcrypt
// hash; the plaintext password is never stored.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Status       AccountStatus
	FailedLogins int
	LockedUntil  time.Time
	CreatedAt    time.Time
}

// Locked reports whether the account is under a lockout window at t.
func (u *User) Locked(t time.Time) bool {
	return !u.LockedUntil.IsZero() && t.Before(u.LockedUntil)
}

// Validate checks the account fields are usable.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %q", u.Role)
	}
	return nil
}
