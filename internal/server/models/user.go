// Package models defines server-side data models persisted in the database.
package models

import "time"

// Roles a user may hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account. Email is stored lowercased.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Age          *int
	Sex          *string
	// ProfilePhoto is the public file name of the uploaded photo, if any.
	ProfilePhoto *string
	Role         string

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time

	ResetToken       *string
	ResetTokenExpiry *time.Time

	CreatedAt time.Time
}

// IsLocked reports whether the account is locked out at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
