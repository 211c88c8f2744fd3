package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

// record значение в bucket sessions
type record struct {
	Data   *models.SessionData `json:"sess"`
	Expire int64               `json:"expire"` // unix ms
}

var errBucketMissing = errors.New("sessions bucket not found")

func (s *Storage) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket(bucketSessions)
	if b == nil {
		return nil, errBucketMissing
	}
	return b, nil
}

// Set создает или перезаписывает сессию
func (s *Storage) Set(ctx context.Context, sid string, data *models.SessionData, expire time.Time) error {
	if expire.IsZero() {
		expire = s.now().Add(storage.DefaultSessionTTL)
	}

	value, err := json.Marshal(record{Data: data, Expire: expire.UnixMilli()})
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", storage.ErrStoreIO, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Put([]byte(sid), value)
	})
	if err != nil {
		return fmt.Errorf("%w: set session: %w", storage.ErrStoreIO, err)
	}

	return nil
}

// Get возвращает не истекшую сессию
func (s *Storage) Get(ctx context.Context, sid string) (*models.SessionData, error) {
	var rec *record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		rec, err = decode(b.Get([]byte(sid)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %w", storage.ErrStoreIO, err)
	}

	if rec == nil || rec.Expire <= s.now().UnixMilli() {
		return nil, storage.ErrSessionNotFound
	}
	if rec.Data == nil {
		rec.Data = &models.SessionData{}
	}

	return rec.Data, nil
}

// Touch продлевает срок не истекшей сессии
func (s *Storage) Touch(ctx context.Context, sid string, expire time.Time) error {
	if expire.IsZero() {
		expire = s.now().Add(storage.DefaultSessionTTL)
	}

	found := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}

		now := s.now()
		rec, err := decode(b.Get([]byte(sid)))
		if err != nil {
			return err
		}
		if rec == nil || rec.Expire <= now.UnixMilli() {
			return nil
		}

		if rec.Data == nil {
			rec.Data = &models.SessionData{}
		}
		rec.Data.Cookie.Expires = expire
		rec.Data.TouchedAt = now.UnixMilli()
		rec.Expire = expire.UnixMilli()
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		found = true
		return b.Put([]byte(sid), value)
	})
	if err != nil {
		return fmt.Errorf("%w: touch session: %w", storage.ErrStoreIO, err)
	}

	if !found {
		return storage.ErrSessionNotFound
	}
	return nil
}

// Destroy удаляет сессию (идемпотентно)
func (s *Storage) Destroy(ctx context.Context, sid string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Delete([]byte(sid))
	})
	if err != nil {
		return fmt.Errorf("%w: destroy session: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Clear пересоздает bucket
func (s *Storage) Clear(ctx context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketSessions); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketSessions)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear sessions: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Length возвращает количество записей
func (s *Storage) Length(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count sessions: %w", storage.ErrStoreIO, err)
	}
	return n, nil
}

// All возвращает все записи
func (s *Storage) All(ctx context.Context) ([]*models.SessionEntry, error) {
	entries := make([]*models.SessionEntry, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return err
			}
			if rec.Data == nil {
				rec.Data = &models.SessionData{}
			}
			entries = append(entries, &models.SessionEntry{
				SID:    string(k),
				Data:   rec.Data,
				Expire: time.UnixMilli(rec.Expire),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", storage.ErrStoreIO, err)
	}

	return entries, nil
}

// DeleteExpired удаляет истекшие записи
func (s *Storage) DeleteExpired(ctx context.Context) (int, error) {
	now := s.now().UnixMilli()
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}

		// удаление во время ForEach не допускается, сначала собираем ключи
		var expired [][]byte
		err = b.ForEach(func(k, v []byte) error {
			rec, err := decode(v)
			if err != nil || rec.Expire <= now {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %w", storage.ErrStoreIO, err)
	}

	return deleted, nil
}

// decode разбирает значение; nil значение означает отсутствие записи
func decode(value []byte) (*record, error) {
	if value == nil {
		return nil, nil
	}
	rec := &record{}
	if err := json.Unmarshal(value, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return rec, nil
}
