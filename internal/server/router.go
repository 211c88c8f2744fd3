package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/csrf"
	"github.com/iudanet/bingo/internal/server/handlers"
	"github.com/iudanet/bingo/internal/server/metrics"
	"github.com/iudanet/bingo/internal/server/middleware"
	"github.com/iudanet/bingo/internal/server/storage"
)

// RouterDeps зависимости HTTP маршрутов
type RouterDeps struct {
	Logger   *slog.Logger
	Auth     *auth.Service
	CSRF     *csrf.Service
	Boards   storage.BoardStorage
	Sessions storage.SessionStore
	DB       handlers.Pinger
	Metrics  *metrics.Metrics
	// Limiter ограничивает /api/login и /api/signup; nil отключает
	Limiter *middleware.RateLimiter
	WebRoot string
	Version string
}

// NewRouter собирает маршруты и цепочку middleware:
// recovery -> logging -> authenticate -> csrf -> mux
func NewRouter(d RouterDeps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Logger, d.Auth, d.CSRF)
	boardHandler := handlers.NewBoardHandler(d.Logger, d.Boards)
	sessionsHandler := handlers.NewSessionsHandler(d.Logger, d.Sessions)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.DB, d.Version)

	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return middleware.RateLimitMiddleware(d.Limiter, d.Logger)(h)
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(h)
	}

	mux := http.NewServeMux()

	// auth
	mux.HandleFunc("GET /api/csrf", authHandler.CSRF)
	mux.Handle("POST /api/signup", limited(authHandler.Signup))
	mux.Handle("POST /api/login", limited(authHandler.Login))
	mux.HandleFunc("POST /api/logout", authHandler.Logout)
	mux.Handle("GET /api/me", protected(authHandler.Me))

	// boards
	mux.Handle("GET /api/boards", protected(boardHandler.Boards))
	mux.Handle("GET /api/getOwnedBoards", protected(boardHandler.OwnedBoards))
	mux.Handle("GET /api/getParticipatingBoards", protected(boardHandler.ParticipatingBoards))
	mux.Handle("POST /api/bingo", protected(boardHandler.Create))
	mux.Handle("GET /api/bingo/{id}", protected(boardHandler.Get))
	mux.Handle("PATCH /api/bingo/{id}", protected(boardHandler.Update))
	mux.Handle("DELETE /api/bingo/{id}", protected(boardHandler.Delete))
	mux.Handle("PUT /api/bingo/{id}/progress", protected(boardHandler.Progress))

	// service
	mux.Handle("GET /api/sessions", middleware.RequireAdmin(http.HandlerFunc(sessionsHandler.List)))
	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	mux.Handle("/", handlers.NewSPAHandler(d.Logger, d.WebRoot))

	var h http.Handler = mux
	h = middleware.CSRF(d.Logger, d.CSRF, d.Metrics.CSRFRejected)(h)
	h = middleware.Authenticate(d.Logger, d.Auth)(h)
	h = middleware.LoggingWithSkip(d.Logger, d.Metrics.HTTPRequest, []string{"/api/health", "/metrics"})(h)
	h = middleware.RecoveryMiddleware(d.Logger)(h)

	return h
}
