package middleware

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/csrf"
)

// CSRF проверяет double-submit токен для изменяющих запросов.
// Должен стоять после Authenticate: токен привязан к сессии запроса
func CSRF(logger *slog.Logger, service *csrf.Service, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service.IsSafe(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			binding := auth.FromContext(r.Context()).Binding()
			if err := service.Validate(r, binding); err != nil {
				logger.WarnContext(r.Context(), "CSRF validation failed",
					"method", r.Method,
					"path", sanitizePath(r.URL.Path),
					slog.Any("error", err),
				)
				if onReject != nil {
					onReject()
				}
				writeError(w, http.StatusForbidden, csrf.ErrValidationFailed.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
