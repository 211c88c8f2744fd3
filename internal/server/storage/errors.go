package storage

import (
	"errors"
	"time"
)

// DefaultSessionTTL время жизни сессии, если срок не передан явно
const DefaultSessionTTL = 24 * time.Hour

// Common storage errors
var (
	// ErrStoreIO оборачивает ошибки хранилища (I/O, SQL, bolt).
	// Наружу отдается как 5xx без подробностей
	ErrStoreIO = errors.New("store i/o error")

	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound сессия отсутствует или истекла
	ErrSessionNotFound = errors.New("session not found")

	// ErrBoardNotFound indicates that board was not found
	ErrBoardNotFound = errors.New("board not found")
)
