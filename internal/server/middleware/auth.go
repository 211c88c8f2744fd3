package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/storage"
)

// Authenticate определяет auth.Context запроса по cookie сессии и кладет его в context.
// Анонимный запрос проходит дальше; 500 только при сбое хранилища сессий.
// Сессия аутентифицированного пользователя продлевается (rolling expiry)
func Authenticate(logger *slog.Logger, service *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ac, err := service.Resolve(ctx, r)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to resolve session", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if ac.IsAuthenticated() {
				// истекшая между Load и Touch сессия не ошибка: запрос обслуживается, cookie не обновляется
				if err := service.Sessions().Touch(ctx, w, ac.Session); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
					logger.WarnContext(ctx, "Failed to touch session", slog.String("user_id", ac.UserID()), slog.Any("error", err))
				}
				logger.DebugContext(ctx, "User authenticated", slog.String("user_id", ac.UserID()))
			}

			next.ServeHTTP(w, r.WithContext(auth.WithContext(ctx, ac)))
		})
	}
}

// RequireAuth отвечает 401 анонимному запросу до вызова handler,
// поэтому существование ресурса не раскрывается
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает только администраторов
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).User().IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
