package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

func newTestBoard(owner string, createdAt int64) *models.Board {
	return &models.Board{
		ID:          uuid.New().String(),
		Title:       "Campus hunt",
		Description: "Find everything",
		Owner:       owner,
		Editors:     []string{},
		Cards: []models.Card{
			{Title: "Library", Description: "Scan the code", Required: true, Type: models.CardQRCode},
			{Title: "Coffee", Description: "Drink one", Type: models.CardHonorSystem},
			{Title: "Free", Description: "Free space", Type: models.CardGiven},
			{Title: "Color", Description: "Favorite color", Type: models.CardUserInput},
		},
		Players:   []models.PlayerStats{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestBoardStorage_CreateGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	board := newTestBoard(owner, time.Now().UnixMilli())

	require.NoError(t, s.CreateBoard(ctx, board))

	got, err := s.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, board, got)

	_, err = s.GetBoard(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrBoardNotFound)
}

func TestBoardStorage_Lists(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	player := createTestUser(t, ctx, s)

	var ids []string
	for i := 0; i < 3; i++ {
		b := newTestBoard(owner, int64(1000+i))
		if i < 2 {
			b.Players = []models.PlayerStats{
				{Player: player, Cards: make([]models.Completion, len(b.Cards))},
				{Player: owner, Cards: make([]models.Completion, len(b.Cards))},
			}
		}
		require.NoError(t, s.CreateBoard(ctx, b))
		ids = append(ids, b.ID)
	}

	owned, err := s.GetOwnedBoards(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, owned, 3)
	assert.Equal(t, ids[2], owned[0].ID, "новые доски первыми")

	limited, err := s.GetOwnedBoards(ctx, owner, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	participating, err := s.GetParticipatingBoards(ctx, player)
	require.NoError(t, err)
	assert.Len(t, participating, 2)

	// владелец в списке игроков не считается участником собственной доски
	ownerParticipating, err := s.GetParticipatingBoards(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, ownerParticipating)

	byIDs, err := s.GetBoards(ctx, []string{ids[0], ids[2], uuid.New().String()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	empty, err := s.GetBoards(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBoardStorage_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestUser(t, ctx, s)
	player := createTestUser(t, ctx, s)
	board := newTestBoard(owner, 1000)
	require.NoError(t, s.CreateBoard(ctx, board))

	board.Title = "Renamed"
	board.Editors = []string{player}
	board.Players = []models.PlayerStats{{
		Player: player,
		Cards:  []models.Completion{{Done: true}, {}, {Done: true}, {Done: true, Response: "green"}},
	}}
	board.UpdatedAt = 2000
	require.NoError(t, s.UpdateBoard(ctx, board))

	got, err := s.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, board, got)

	participating, err := s.GetParticipatingBoards(ctx, player)
	require.NoError(t, err)
	require.Len(t, participating, 1)

	missing := newTestBoard(owner, 1)
	assert.ErrorIs(t, s.UpdateBoard(ctx, missing), storage.ErrBoardNotFound)

	require.NoError(t, s.DeleteBoard(ctx, board.ID))
	assert.ErrorIs(t, s.DeleteBoard(ctx, board.ID), storage.ErrBoardNotFound)

	// board_players удаляются каскадно
	participating, err = s.GetParticipatingBoards(ctx, player)
	require.NoError(t, err)
	assert.Empty(t, participating)
}

func TestBoardStorage_IOErrors(t *testing.T) {
	ctx := context.Background()
	s, mock := setupMockStorage(t)
	dbErr := errors.New("database is locked")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO boards").WillReturnError(dbErr)
	mock.ExpectRollback()
	err := s.CreateBoard(ctx, newTestBoard("owner", 1))
	assert.ErrorIs(t, err, storage.ErrStoreIO)

	mock.ExpectQuery("SELECT (.+) FROM boards WHERE owner").WillReturnError(dbErr)
	_, err = s.GetOwnedBoards(ctx, "owner", 5)
	assert.ErrorIs(t, err, storage.ErrStoreIO)

	mock.ExpectExec("DELETE FROM boards").WillReturnError(dbErr)
	err = s.DeleteBoard(ctx, "id")
	assert.ErrorIs(t, err, storage.ErrStoreIO)

	require.NoError(t, mock.ExpectationsWereMet())
}
