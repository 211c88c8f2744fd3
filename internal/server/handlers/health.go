package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/bingo/pkg/api"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	responder
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		responder: responder{logger: logger},
		db:        db,
		version:   version,
	}
}

// Health обрабатывает GET /api/health
// 503, если база данных недоступна
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := api.HealthResponse{Status: "ok", Database: "ok", Version: h.version}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "Database health check failed", slog.Any("error", err))
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	h.sendJSON(w, resp, status)
}
