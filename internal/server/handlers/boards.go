package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/validation"
	"github.com/iudanet/bingo/pkg/api"
)

// BoardHandler CRUD досок и прогресс игроков. Все маршруты за RequireAuth
type BoardHandler struct {
	responder
	boards storage.BoardStorage
	now    func() time.Time
}

// NewBoardHandler создает handler досок
func NewBoardHandler(logger *slog.Logger, boards storage.BoardStorage) *BoardHandler {
	return &BoardHandler{
		responder: responder{logger: logger},
		boards:    boards,
		now:       time.Now,
	}
}

// Boards обрабатывает GET /api/boards: свои доски и доски, где пользователь игрок
func (h *BoardHandler) Boards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.FromContext(ctx).UserID()

	owned, err := h.boards.GetOwnedBoards(ctx, userID, 0)
	if err != nil {
		h.internalError(w, r, "failed to get owned boards", err)
		return
	}
	participating, err := h.boards.GetParticipatingBoards(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to get participating boards", err)
		return
	}

	h.sendJSON(w, api.BoardsResponse{Owned: nonNil(owned), Participating: nonNil(participating)}, http.StatusOK)
}

// OwnedBoards обрабатывает GET /api/getOwnedBoards?limit=N
func (h *BoardHandler) OwnedBoards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	boards, err := h.boards.GetOwnedBoards(ctx, auth.FromContext(ctx).UserID(), limit)
	if err != nil {
		h.internalError(w, r, "failed to get owned boards", err)
		return
	}

	h.sendJSON(w, nonNil(boards), http.StatusOK)
}

// ParticipatingBoards обрабатывает GET /api/getParticipatingBoards
func (h *BoardHandler) ParticipatingBoards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	boards, err := h.boards.GetParticipatingBoards(ctx, auth.FromContext(ctx).UserID())
	if err != nil {
		h.internalError(w, r, "failed to get participating boards", err)
		return
	}

	h.sendJSON(w, nonNil(boards), http.StatusOK)
}

// Create обрабатывает POST /api/bingo
func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateBoard(req.Title, req.Description, req.Editors, req.Cards); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := h.now().UnixMilli()
	board := &models.Board{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Owner:       auth.FromContext(ctx).UserID(),
		Editors:     req.Editors,
		Cards:       req.Cards,
		Players:     []models.PlayerStats{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.boards.CreateBoard(ctx, board); err != nil {
		h.internalError(w, r, "failed to create board", err)
		return
	}

	h.logger.InfoContext(ctx, "Board created", slog.String("board_id", board.ID), slog.String("owner", board.Owner))
	h.sendJSON(w, board, http.StatusCreated)
}

// Get обрабатывает GET /api/bingo/{id}
func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, board, http.StatusOK)
}

// Update обрабатывает PATCH /api/bingo/{id}: владелец или редактор.
// Изменение набора карточек сбрасывает прогресс игроков
func (h *BoardHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.UpdateBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}
	userID := auth.FromContext(ctx).UserID()
	if !board.CanEdit(userID) {
		h.sendError(w, "only the owner or an editor can change the board", http.StatusForbidden)
		return
	}

	if req.Title != nil {
		board.Title = *req.Title
	}
	if req.Description != nil {
		board.Description = *req.Description
	}
	if req.Editors != nil {
		// список редакторов меняет только владелец
		if board.Owner != userID {
			h.sendError(w, "only the owner can change editors", http.StatusForbidden)
			return
		}
		board.Editors = *req.Editors
	}
	if req.Cards != nil {
		board.Cards = *req.Cards
		for i := range board.Players {
			board.Players[i].Cards = make([]models.Completion, len(board.Cards))
		}
	}

	if err := validation.ValidateBoard(board.Title, board.Description, board.Editors, board.Cards); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	board.UpdatedAt = h.now().UnixMilli()
	if err := h.boards.UpdateBoard(ctx, board); err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			h.sendError(w, "board not found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "failed to update board", err)
		return
	}

	h.sendJSON(w, board, http.StatusOK)
}

// Delete обрабатывает DELETE /api/bingo/{id}: только владелец
func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}
	if board.Owner != auth.FromContext(ctx).UserID() {
		h.sendError(w, "only the owner can delete the board", http.StatusForbidden)
		return
	}

	if err := h.boards.DeleteBoard(ctx, board.ID); err != nil && !errors.Is(err, storage.ErrBoardNotFound) {
		h.internalError(w, r, "failed to delete board", err)
		return
	}

	h.logger.InfoContext(ctx, "Board deleted", slog.String("board_id", board.ID))
	w.WriteHeader(http.StatusNoContent)
}

// Progress обрабатывает PUT /api/bingo/{id}/progress.
// Записывает отметки текущего пользователя; первый вызов добавляет его в игроки
func (h *BoardHandler) Progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}

	if err := validation.ValidateProgress(board.Cards, req.Cards); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := auth.FromContext(ctx).UserID()
	if i := board.PlayerIndex(userID); i >= 0 {
		board.Players[i].Cards = req.Cards
	} else {
		board.Players = append(board.Players, models.PlayerStats{Player: userID, Cards: req.Cards})
	}

	board.UpdatedAt = h.now().UnixMilli()
	if err := h.boards.UpdateBoard(ctx, board); err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			h.sendError(w, "board not found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "failed to save progress", err)
		return
	}

	h.sendJSON(w, board, http.StatusOK)
}

// loadBoard достает доску по {id}; при ошибке ответ уже отправлен
func (h *BoardHandler) loadBoard(w http.ResponseWriter, r *http.Request) (*models.Board, bool) {
	id := r.PathValue("id")
	if err := validation.ValidateUUID("board", id); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	board, err := h.boards.GetBoard(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			h.sendError(w, "board not found", http.StatusNotFound)
			return nil, false
		}
		h.internalError(w, r, "failed to get board", err)
		return nil, false
	}

	return board, true
}

// nonNil пустой список кодируется как [], а не null
func nonNil(boards []*models.Board) []*models.Board {
	if boards == nil {
		return []*models.Board{}
	}
	return boards
}
