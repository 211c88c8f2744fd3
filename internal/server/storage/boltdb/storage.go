// Package boltdb хранилище сессий в BoltDB (альтернатива таблице sessions в SQLite)
package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// BoltDB bucket names
var bucketSessions = []byte("sessions")

// Storage represents BoltDB session storage
type Storage struct {
	db  *bbolt.DB
	now func() time.Time
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Timeout не дает зависнуть, если файл заблокирован другим процессом
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db, now: time.Now}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return fmt.Errorf("failed to create sessions bucket: %w", err)
		}
		return nil
	})
}
