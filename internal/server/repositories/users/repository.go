// Package users declares the server-side repository contract for accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/server/models"
)

// Repository defines persistence operations for users.
type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. A duplicate
	// username or email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)

	// RecordFailedLogin increments the failure counter and sets locked_until
	// to lockUntil once the counter reaches maxAttempts. It returns the new
	// counter value.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, error)
	// RecordSuccessfulLogin clears the failure counter and lock, and stamps last_login.
	RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error

	SetResetToken(ctx context.Context, id string, token string, expiry time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// ResetPassword stores a new hash and clears the reset token and lockout.
	ResetPassword(ctx context.Context, id string, passwordHash string) error
	SetProfilePhoto(ctx context.Context, id string, key string) error
	SetRole(ctx context.Context, id string, role string) error

	// ClearExpiredResetTokens drops reset tokens that expired before now.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
