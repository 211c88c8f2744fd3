package storage

import (
	"context"
	"time"

	"github.com/iudanet/bingo/internal/models"
)

// SessionStore хранилище сессий с истечением срока.
// Все ошибки бэкенда оборачиваются в ErrStoreIO
type SessionStore interface {
	// Set создает или перезаписывает сессию. expire.IsZero() означает now+DefaultSessionTTL
	Set(ctx context.Context, sid string, data *models.SessionData, expire time.Time) error

	// Get возвращает сессию, только если срок не истек
	// Returns ErrSessionNotFound для отсутствующей или истекшей сессии (даже если она еще не удалена)
	Get(ctx context.Context, sid string) (*models.SessionData, error)

	// Touch продлевает срок существующей и не истекшей сессии одной операцией,
	// вместе с Cookie.Expires и TouchedAt в payload. Удаленная сессия не создается заново
	// Returns ErrSessionNotFound иначе
	Touch(ctx context.Context, sid string, expire time.Time) error

	// Destroy удаляет сессию, отсутствие сессии ошибкой не считается
	Destroy(ctx context.Context, sid string) error

	// Clear удаляет все сессии
	Clear(ctx context.Context) error

	// Length возвращает количество строк, включая истекшие, но еще не удаленные
	Length(ctx context.Context) (int, error)

	// All возвращает все строки таблицы (диагностика), включая истекшие
	All(ctx context.Context) ([]*models.SessionEntry, error)

	// DeleteExpired удаляет сессии с истекшим сроком, возвращает количество удаленных
	DeleteExpired(ctx context.Context) (int, error)
}
