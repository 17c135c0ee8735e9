package repository

import (
	"time"

	"github.com/oocloud/oocloud/internal/domain"
)

// UserRepository defines the interface for user and OTP persistence.
// Lookup methods return (nil, nil) when no row matches.
type UserRepository interface {
	// GetUserByID retrieves a user by ID
	GetUserByID(id string) (*domain.User, error)

	// GetUserByPhone retrieves a user by phone number
	GetUserByPhone(phone string) (*domain.User, error)

	// ListUsers returns all users
	ListUsers() ([]*domain.User, error)

	// CreateUser inserts a new user
	CreateUser(u *domain.User) error

	// UpdateUser persists changes to an existing user
	UpdateUser(u *domain.User) error

	// CreateOTP inserts a new one-time code
	CreateOTP(o *domain.OTP) error

	// GetOTP retrieves the newest matching code for a user
	GetOTP(userID, code string) (*domain.OTP, error)

	// MarkOTPUsed flags a code as consumed
	MarkOTPUsed(id int64) error

	// DeleteExpiredOTPs removes used codes and codes that expired before
	// cutoff, returning how many were deleted
	DeleteExpiredOTPs(cutoff time.Time) (int, error)
}
