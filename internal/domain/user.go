package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const DefaultName = "User"

type User struct {
	ID           string
	Name         string
	Email        string
	Username     *string // nil when the account was created without one
	PasswordHash string
	Status       Status
	Role         Role

	// ResetPermitUntil is a Unix epoch in milliseconds. Zero means no
	// active permission to mint a password-reset token.
	ResetPermitUntil int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetPermitted reports whether the permit window is open at now.
func (u *User) ResetPermitted(now time.Time) bool {
	return u.ResetPermitUntil != 0 && u.ResetPermitUntil > now.UnixMilli()
}

func (u *User) Approved() bool {
	return u.Status == StatusApproved
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
