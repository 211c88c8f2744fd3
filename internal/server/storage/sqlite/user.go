package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

const userColumns = `id, password, email, first_name, last_name, birthday, avatar_url, account_type, created_at, last_login`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	accountType := user.AccountType
	if accountType == "" {
		accountType = models.AccountUser
	}

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Password,
		strings.ToLower(user.Email),
		user.FirstName,
		user.LastName,
		user.Birthday,
		user.AvatarURL,
		string(accountType),
		user.CreatedAt.UTC(),
		user.LastLogin,
	)

	if err != nil {
		// Проверяем на duplicate email
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("%w: insert user: %w", storage.ErrStoreIO, err)
	}

	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var (
		accountType string
		lastLogin   sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Password,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Birthday,
		&user.AvatarURL,
		&accountType,
		&user.CreatedAt,
		&lastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: get user: %w", storage.ErrStoreIO, err)
	}

	user.AccountType = models.AccountType(accountType)
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// UpdatePassword replaces the credential record
func (s *Storage) UpdatePassword(ctx context.Context, userID, record string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, record, userID)
	if err != nil {
		return fmt.Errorf("%w: update password: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrUserNotFound)
}

// UpdateAccountType changes the user role
func (s *Storage) UpdateAccountType(ctx context.Context, userID string, accountType models.AccountType) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET account_type = ? WHERE id = ?`, string(accountType), userID)
	if err != nil {
		return fmt.Errorf("%w: update account type: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrUserNotFound)
}

// DeleteUser deletes user by ID
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrUserNotFound)
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, lastLogin.UTC(), userID)
	if err != nil {
		return fmt.Errorf("%w: update last login: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrUserNotFound)
}

// expectOneRow возвращает notFound, если запрос не затронул ни одной строки
func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", storage.ErrStoreIO, err)
	}

	if rows == 0 {
		return notFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
