package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

// expire хранится в unix ms и сравнивается с s.now(), а не с datetime('now').
// Строка с expire <= now считается истекшей

// Set создает или перезаписывает сессию
func (s *Storage) Set(ctx context.Context, sid string, data *models.SessionData, expire time.Time) error {
	if expire.IsZero() {
		expire = s.now().Add(storage.DefaultSessionTTL)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", storage.ErrStoreIO, err)
	}

	query := `INSERT INTO sessions (sid, sess, expire) VALUES (?, ?, ?)
		ON CONFLICT (sid) DO UPDATE SET sess = excluded.sess, expire = excluded.expire`

	if _, err := s.db.ExecContext(ctx, query, sid, string(payload), expire.UnixMilli()); err != nil {
		return fmt.Errorf("%w: set session: %w", storage.ErrStoreIO, err)
	}

	return nil
}

// Get возвращает не истекшую сессию
func (s *Storage) Get(ctx context.Context, sid string) (*models.SessionData, error) {
	var payload string

	err := s.db.QueryRowContext(ctx,
		`SELECT sess FROM sessions WHERE sid = ? AND expire > ?`,
		sid, s.now().UnixMilli(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: get session: %w", storage.ErrStoreIO, err)
	}

	data := &models.SessionData{}
	if err := json.Unmarshal([]byte(payload), data); err != nil {
		return nil, fmt.Errorf("%w: decode session: %w", storage.ErrStoreIO, err)
	}

	return data, nil
}

// Touch продлевает срок не истекшей сессии
func (s *Storage) Touch(ctx context.Context, sid string, expire time.Time) error {
	if expire.IsZero() {
		expire = s.now().Add(storage.DefaultSessionTTL)
	}

	now := s.now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expire = ?,
			sess = json_set(sess, '$.cookie.expires', ?, '$.touched_at', ?)
		WHERE sid = ? AND expire > ?`,
		expire.UnixMilli(), expire.Format(time.RFC3339Nano), now.UnixMilli(), sid, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: touch session: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrSessionNotFound)
}

// Destroy удаляет сессию (идемпотентно)
func (s *Storage) Destroy(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, sid); err != nil {
		return fmt.Errorf("%w: destroy session: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Clear удаляет все сессии
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("%w: clear sessions: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Length возвращает количество строк
func (s *Storage) Length(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count sessions: %w", storage.ErrStoreIO, err)
	}
	return count, nil
}

// All возвращает все строки
func (s *Storage) All(ctx context.Context) ([]*models.SessionEntry, error) {
	rows, err := sq.Select("sid", "sess", "expire").
		From("sessions").
		OrderBy("expire").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", storage.ErrStoreIO, err)
	}
	defer rows.Close()

	entries := make([]*models.SessionEntry, 0)
	for rows.Next() {
		var (
			payload  string
			expireMs int64
		)
		entry := &models.SessionEntry{Data: &models.SessionData{}}
		if err := rows.Scan(&entry.SID, &payload, &expireMs); err != nil {
			return nil, fmt.Errorf("%w: scan session: %w", storage.ErrStoreIO, err)
		}
		if err := json.Unmarshal([]byte(payload), entry.Data); err != nil {
			return nil, fmt.Errorf("%w: decode session: %w", storage.ErrStoreIO, err)
		}
		entry.Expire = time.UnixMilli(expireMs)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %w", storage.ErrStoreIO, err)
	}

	return entries, nil
}

// DeleteExpired удаляет истекшие сессии
func (s *Storage) DeleteExpired(ctx context.Context) (int, error) {
	result, err := sq.Delete("sessions").
		Where(sq.LtOrEq{"expire": s.now().UnixMilli()}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %w", storage.ErrStoreIO, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", storage.ErrStoreIO, err)
	}

	return int(n), nil
}
