package domain

import (
	"strings"
	"time"
)

// User is a phone-number authenticated account with its own folder tree.
type User struct {
	ID           string    `json:"id"`
	PhoneNumber  string    `json:"phone_number"`
	Username     string    `json:"username,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Folder       string    `json:"folder"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	DateJoined   time.Time `json:"date_joined"`
}

// FolderName returns the user's storage folder name, deriving one from the
// username or full name when it was never persisted.
func (u *User) FolderName() string {
	if u.Folder != "" {
		return u.Folder
	}
	if u.Username != "" {
		return u.Username
	}
	return strings.ToUpper(strings.ReplaceAll(u.FullName, " ", "_"))
}

// OTP is a one-time login code sent to a user's phone.
type OTP struct {
	ID        int64
	UserID    string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// Valid reports whether the code is unused and not yet expired.
func (o *OTP) Valid(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}
