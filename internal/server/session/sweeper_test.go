package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/server/storage/sqlite"
)

// sweepStore считает вызовы DeleteExpired и может возвращать ошибку
type sweepStore struct {
	storage.SessionStore
	err   error
	calls atomic.Int32
}

func (s *sweepStore) DeleteExpired(ctx context.Context) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	for _, sid := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, sid, &models.SessionData{}, past))
	}
	require.NoError(t, store.Set(ctx, "live", &models.SessionData{}, future))

	var observed int
	sw := NewSweeper(store, time.Hour, setupTestLogger(), func(n int) { observed += n })

	deleted, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, 3, observed)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "live", all[0].SID)
}

func TestSweeper_ErrorDoesNotStopLoop(t *testing.T) {
	store := &sweepStore{err: errors.New("database is locked")}
	sw := NewSweeper(store, 5*time.Millisecond, setupTestLogger(), nil)

	_, err := sw.SweepOnce(context.Background())
	require.Error(t, err)

	sw.Start(context.Background())
	assert.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	sw.Stop()
}

func TestSweeper_StopAndCancel(t *testing.T) {
	store := &sweepStore{}

	// Stop без Start не блокируется
	NewSweeper(store, time.Hour, setupTestLogger(), nil).Stop()

	sw := NewSweeper(store, time.Millisecond, setupTestLogger(), nil)
	sw.Start(context.Background())
	sw.Start(context.Background())
	sw.Stop()
	sw.Stop()

	calls := store.calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, store.calls.Load(), "после Stop очистка не выполняется")

	ctx, cancel := context.WithCancel(context.Background())
	sw = NewSweeper(store, time.Millisecond, setupTestLogger(), nil)
	sw.Start(ctx)
	cancel()
	done := make(chan struct{})
	go func() {
		sw.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	sw := NewSweeper(&sweepStore{}, 0, setupTestLogger(), nil)
	assert.Equal(t, DefaultSweepInterval, sw.interval)
}
