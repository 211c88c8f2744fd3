package storage

import (
	"context"
	"time"

	"github.com/iudanet/bingo/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by email (case-insensitive)
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdatePassword replaces credential record (rehash after pepper rotation)
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePassword(ctx context.Context, userID, record string) error

	// UpdateAccountType меняет роль пользователя (bingoctl users promote|demote)
	// Returns ErrUserNotFound if user doesn't exist
	UpdateAccountType(ctx context.Context, userID string, accountType models.AccountType) error

	// DeleteUser deletes user by ID
	// Returns ErrUserNotFound if user doesn't exist
	DeleteUser(ctx context.Context, userID string) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}
