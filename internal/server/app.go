// Package server собирает и запускает HTTP сервер bingo: хранилище,
// сессии, CSRF, аутентификацию, маршруты и фоновую очистку сессий.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/bingo/internal/config"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/csrf"
	"github.com/iudanet/bingo/internal/server/metrics"
	"github.com/iudanet/bingo/internal/server/middleware"
	"github.com/iudanet/bingo/internal/server/session"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/server/storage/boltdb"
	"github.com/iudanet/bingo/internal/server/storage/sqlite"
)

// App владеет хранилищами и фоновыми goroutine; закрывается через Close
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqlite.Storage
	closers []io.Closer
	sweeper *session.Sweeper
	limiter *middleware.RateLimiter
	server  *http.Server
}

// NewApp создает все компоненты сервера. cfg должен пройти Validate
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	db, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	sessions, err := app.openSessionStore(ctx, db)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	m := metrics.New()

	hasher, err := password.NewHasher(cfg.Hash.PasswordOptions())
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	hasher.SetObserver(m.ObservePassword)

	codec, err := session.NewCookieCodec(cfg.Session.Secrets)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	manager := session.NewManager(sessions, codec, session.Config{
		CookieName:    cfg.Session.CookieName,
		TTL:           cfg.Session.TTL,
		TouchInterval: cfg.Session.TouchInterval,
		Secure:        !cfg.Development(),
	}, logger)

	csrfService, err := csrf.NewService(csrf.Config{
		Secrets:     cfg.CSRF.Secrets,
		SafeMethods: cfg.CSRF.SafeMethods,
		CookieName:  cfg.CSRF.CookieName,
		HeaderName:  cfg.CSRF.HeaderName,
		Secure:      !cfg.Development(),
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	authService := auth.NewService(db, hasher, manager, auth.Config{
		MinPasswordLength: cfg.Hash.MinPasswordLength,
		MaxPasswordLength: cfg.Hash.MaxPasswordLength,
	}, logger, m)

	app.sweeper = session.NewSweeper(sessions, cfg.Session.SweepInterval, logger, m.SessionsSwept)

	if cfg.RateLimit.Enabled {
		trusted, err := cfg.RateLimit.TrustedPrefixes()
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
		}
		app.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0, logger)
		app.limiter.TrustProxies(trusted)
	}

	app.server = &http.Server{
		Addr: cfg.Server.Addr,
		Handler: NewRouter(RouterDeps{
			Logger:   logger,
			Auth:     authService,
			CSRF:     csrfService,
			Boards:   db,
			Sessions: sessions,
			DB:       db,
			Metrics:  m,
			Limiter:  app.limiter,
			WebRoot:  cfg.Web.Root,
			Version:  version,
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return app, nil
}

// OpenSessionStore открывает хранилище сессий выбранного бэкенда.
// Для sqlite используется та же база, что и для пользователей
func OpenSessionStore(ctx context.Context, cfg *config.Config, db *sqlite.Storage) (storage.SessionStore, io.Closer, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendBolt:
		store, err := boltdb.New(ctx, cfg.Session.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt session store: %w", err)
		}
		return store, store, nil
	case config.SessionBackendSQLite, "":
		return db, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session backend %q", config.ErrConfiguration, cfg.Session.Backend)
	}
}

func (a *App) openSessionStore(ctx context.Context, db *sqlite.Storage) (storage.SessionStore, error) {
	store, closer, err := OpenSessionStore(ctx, a.cfg, db)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.logger.InfoContext(ctx, "Session store opened", slog.String("backend", a.cfg.Session.Backend))
	return store, nil
}

// Handler HTTP handler сервера (для тестов)
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает HTTP до отмены ctx, затем выполняет graceful shutdown
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)
	defer a.sweeper.Stop()

	if a.limiter != nil {
		defer a.limiter.Stop()
	}

	errC := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", slog.String("addr", a.cfg.Server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err, ok := <-errC:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return nil
}

// Close останавливает limiter и закрывает хранилища в обратном порядке открытия
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
