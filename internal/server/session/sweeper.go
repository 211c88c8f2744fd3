package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/bingo/internal/server/storage"
)

// DefaultSweepInterval период удаления истекших сессий
const DefaultSweepInterval = 15 * time.Minute

// SweepObserver получает количество удаленных сессий (метрики)
type SweepObserver func(deleted int)

// Sweeper периодически удаляет истекшие сессии.
// Корректность Get от него не зависит: истекшая строка и так не читается
type Sweeper struct {
	store    storage.SessionStore
	logger   *slog.Logger
	observe  SweepObserver
	stopC    chan struct{}
	doneC    chan struct{}
	interval time.Duration
	once     sync.Once
	started  atomic.Bool
}

// NewSweeper создает sweeper; interval <= 0 заменяется на DefaultSweepInterval
func NewSweeper(store storage.SessionStore, interval time.Duration, logger *slog.Logger, observe SweepObserver) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		observe:  observe,
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
}

// Start запускает goroutine очистки; она завершается по Stop или отмене ctx
func (s *Sweeper) Start(ctx context.Context) {
	if s.started.Swap(true) {
		return
	}
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneC)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		case <-s.stopC:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce выполняет одну очистку. Ошибка логируется и возвращается, но не останавливает цикл
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	// короткая операция, не дольше интервала
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	deleted, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sweep expired sessions", slog.Any("error", err))
		return 0, err
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "Expired sessions swept", slog.Int("deleted", deleted))
	}
	if s.observe != nil {
		s.observe(deleted)
	}

	return deleted, nil
}

// Stop останавливает goroutine и ждет ее завершения. Повторный вызов безопасен
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.stopC)
	})
	if s.started.Load() {
		<-s.doneC
	}
}
