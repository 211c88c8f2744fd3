// Package storagetest общие проверки контракта storage.SessionStore
// для всех бэкендов
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

// Clock управляемые часы для тестов
type Clock struct {
	t  time.Time
	mu sync.Mutex
}

// NewClock создает часы с текущим временем
func NewClock() *Clock {
	return &Clock{t: time.Now()}
}

// Now возвращает текущее время часов
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance сдвигает часы вперед
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Factory создает пустое хранилище, использующее переданные часы
type Factory func(t *testing.T, clock *Clock) storage.SessionStore

func payload(userID string) *models.SessionData {
	return &models.SessionData{User: &models.SessionUser{ID: userID}}
}

// RunSessionStoreTests прогоняет контракт SessionStore
func RunSessionStoreTests(t *testing.T, factory Factory) {
	t.Run("set and get", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "sid", payload("u1"), clock.Now().Add(time.Hour)))
		got, err := s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID())

		require.NoError(t, s.Set(ctx, "sid", payload("u2"), clock.Now().Add(time.Hour)))
		got, err = s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, "u2", got.UserID(), "set перезаписывает существующую запись")

		n, err := s.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("anonymous payload", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "anon", &models.SessionData{}, time.Time{}))
		got, err := s.Get(ctx, "anon")
		require.NoError(t, err)
		assert.Empty(t, got.UserID())
	})

	t.Run("missing is not found", func(t *testing.T) {
		s := factory(t, NewClock())
		_, err := s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("expired is not found before sweep", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "sid", payload("u"), clock.Now().Add(time.Millisecond)))
		clock.Advance(2 * time.Millisecond)

		_, err := s.Get(ctx, "sid")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)

		n, err := s.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "строка остается до sweep")
	})

	t.Run("default ttl", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "sid", payload("u"), time.Time{}))

		clock.Advance(storage.DefaultSessionTTL - time.Minute)
		_, err := s.Get(ctx, "sid")
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		_, err = s.Get(ctx, "sid")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("touch extends only live sessions", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "live", payload("u"), clock.Now().Add(time.Minute)))
		require.NoError(t, s.Set(ctx, "dead", payload("u"), clock.Now().Add(-time.Minute)))

		require.NoError(t, s.Touch(ctx, "live", clock.Now().Add(time.Hour)))
		assert.ErrorIs(t, s.Touch(ctx, "dead", clock.Now().Add(time.Hour)), storage.ErrSessionNotFound)
		assert.ErrorIs(t, s.Touch(ctx, "missing", clock.Now().Add(time.Hour)), storage.ErrSessionNotFound)

		clock.Advance(30 * time.Minute)
		_, err := s.Get(ctx, "live")
		require.NoError(t, err)
		_, err = s.Get(ctx, "dead")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("touch refreshes payload expiry", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "sid", payload("u"), clock.Now().Add(time.Minute)))

		clock.Advance(10 * time.Second)
		expire := clock.Now().Add(time.Hour)
		require.NoError(t, s.Touch(ctx, "sid", expire))

		got, err := s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, "u", got.UserID())
		assert.True(t, expire.Equal(got.Cookie.Expires), "cookie.expires %v, want %v", got.Cookie.Expires, expire)
		assert.Equal(t, clock.Now().UnixMilli(), got.TouchedAt)
	})

	t.Run("touch does not recreate destroyed session", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		require.NoError(t, s.Set(ctx, "sid", payload("u"), clock.Now().Add(time.Minute)))
		require.NoError(t, s.Destroy(ctx, "sid"))

		assert.ErrorIs(t, s.Touch(ctx, "sid", clock.Now().Add(time.Hour)), storage.ErrSessionNotFound)

		_, err := s.Get(ctx, "sid")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
		n, err := s.Length(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t, NewClock())

		require.NoError(t, s.Set(ctx, "sid", payload("u"), time.Time{}))
		require.NoError(t, s.Destroy(ctx, "sid"))
		require.NoError(t, s.Destroy(ctx, "sid"))

		_, err := s.Get(ctx, "sid")
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t, NewClock())

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Set(ctx, fmt.Sprintf("sid-%d", i), payload("u"), time.Time{}))
		}
		require.NoError(t, s.Clear(ctx))

		n, err := s.Length(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		// хранилище пригодно после clear
		require.NoError(t, s.Set(ctx, "after", payload("u"), time.Time{}))
	})

	t.Run("sweep leaves only live rows", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := factory(t, clock)

		const expired, live = 5, 3
		for i := 0; i < expired; i++ {
			exp := clock.Now().Add(-time.Duration(i+1) * time.Second)
			require.NoError(t, s.Set(ctx, fmt.Sprintf("old-%d", i), payload("u"), exp))
		}
		for i := 0; i < live; i++ {
			exp := clock.Now().Add(time.Duration(i+1) * time.Hour)
			require.NoError(t, s.Set(ctx, fmt.Sprintf("new-%d", i), payload("u"), exp))
		}

		deleted, err := s.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, expired, deleted)

		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, live)

		deleted, err = s.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("concurrent access", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t, NewClock())

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sid := fmt.Sprintf("sid-%d", i)
				assert.NoError(t, s.Set(ctx, sid, payload("u"), time.Time{}))
				_, err := s.Get(ctx, sid)
				assert.NoError(t, err)
				assert.NoError(t, s.Destroy(ctx, sid))
			}(i)
		}
		wg.Wait()

		n, err := s.Length(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
