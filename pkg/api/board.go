package api

import "github.com/iudanet/bingo/internal/models"

// CreateBoardRequest запрос POST /api/bingo
type CreateBoardRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Editors     []string      `json:"editors"`
	Cards       []models.Card `json:"cards"`
}

// UpdateBoardRequest запрос PATCH /api/bingo/{id}; nil поля не меняются
type UpdateBoardRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Editors     *[]string      `json:"editors,omitempty"`
	Cards       *[]models.Card `json:"cards,omitempty"`
}

// ProgressRequest отметки игрока, по одной на карточку доски
type ProgressRequest struct {
	Cards []models.Completion `json:"cards"`
}

// BoardsResponse ответ GET /api/boards
type BoardsResponse struct {
	Owned         []*models.Board `json:"owned"`
	Participating []*models.Board `json:"participating"`
}

// SessionInfo строка хранилища сессий для администратора; id замаскирован
type SessionInfo struct {
	SID     string `json:"sid"`
	UserID  string `json:"user_id,omitempty"`
	Expire  int64  `json:"expire"` // unix ms
	Expired bool   `json:"expired"`
}

// SessionsResponse ответ GET /api/sessions
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}
