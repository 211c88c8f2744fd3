package storage

import (
	"context"

	"github.com/iudanet/bingo/internal/models"
)

// BoardStorage defines interface for bingo boards persistence
type BoardStorage interface {
	// CreateBoard saves a new board
	CreateBoard(ctx context.Context, board *models.Board) error

	// GetBoard retrieves board by ID
	// Returns ErrBoardNotFound if board doesn't exist
	GetBoard(ctx context.Context, id string) (*models.Board, error)

	// GetBoards retrieves boards by IDs, missing ids are skipped
	GetBoards(ctx context.Context, ids []string) ([]*models.Board, error)

	// GetOwnedBoards returns boards of the owner, newest first. limit <= 0 means no limit
	GetOwnedBoards(ctx context.Context, ownerID string, limit int) ([]*models.Board, error)

	// GetParticipatingBoards returns boards where user is a player but not the owner
	GetParticipatingBoards(ctx context.Context, userID string) ([]*models.Board, error)

	// UpdateBoard replaces title, description, editors, cards, players and updated_at
	// Returns ErrBoardNotFound if board doesn't exist
	UpdateBoard(ctx context.Context, board *models.Board) error

	// DeleteBoard deletes board by ID
	// Returns ErrBoardNotFound if board doesn't exist
	DeleteBoard(ctx context.Context, id string) error
}
