package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/bingo/internal/server/session"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/pkg/api"
)

// SessionsHandler диагностика хранилища сессий (только администратор)
type SessionsHandler struct {
	responder
	store storage.SessionStore
	now   func() time.Time
}

// NewSessionsHandler создает handler диагностики сессий
func NewSessionsHandler(logger *slog.Logger, store storage.SessionStore) *SessionsHandler {
	return &SessionsHandler{
		responder: responder{logger: logger},
		store:     store,
		now:       time.Now,
	}
}

// List обрабатывает GET /api/sessions. Полные id сессий не отдаются
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.store.All(ctx)
	if err != nil {
		h.internalError(w, r, "failed to list sessions", err)
		return
	}

	now := h.now()
	resp := api.SessionsResponse{Sessions: make([]api.SessionInfo, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Sessions = append(resp.Sessions, api.SessionInfo{
			SID:     session.MaskID(e.SID),
			UserID:  e.Data.UserID(),
			Expire:  e.Expire.UnixMilli(),
			Expired: !e.Expire.After(now),
		})
	}

	h.sendJSON(w, resp, http.StatusOK)
}
