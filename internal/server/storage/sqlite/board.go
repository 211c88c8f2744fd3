package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

var boardColumns = []string{"id", "title", "description", "created_at", "updated_at", "owner", "editors", "cards", "players"}

// boardRow JSON колонки доски
type boardRow struct {
	editors string
	cards   string
	players string
}

func encodeBoard(b *models.Board) (*boardRow, error) {
	editors := b.Editors
	if editors == nil {
		editors = []string{}
	}
	editorsJSON, err := json.Marshal(editors)
	if err != nil {
		return nil, fmt.Errorf("encode editors: %w", err)
	}

	tuples := make([]json.RawMessage, 0, len(b.Cards))
	for _, c := range b.Cards {
		t, err := c.MarshalTuple()
		if err != nil {
			return nil, fmt.Errorf("encode card: %w", err)
		}
		tuples = append(tuples, t)
	}
	cardsJSON, err := json.Marshal(tuples)
	if err != nil {
		return nil, fmt.Errorf("encode cards: %w", err)
	}

	players := b.Players
	if players == nil {
		players = []models.PlayerStats{}
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return nil, fmt.Errorf("encode players: %w", err)
	}

	return &boardRow{editors: string(editorsJSON), cards: string(cardsJSON), players: string(playersJSON)}, nil
}

func decodeBoard(b *models.Board, row *boardRow) error {
	if err := json.Unmarshal([]byte(row.editors), &b.Editors); err != nil {
		return fmt.Errorf("decode editors: %w", err)
	}

	var tuples []json.RawMessage
	if err := json.Unmarshal([]byte(row.cards), &tuples); err != nil {
		return fmt.Errorf("decode cards: %w", err)
	}
	b.Cards = make([]models.Card, len(tuples))
	for i, t := range tuples {
		if err := b.Cards[i].UnmarshalTuple(t); err != nil {
			return err
		}
	}

	if err := json.Unmarshal([]byte(row.players), &b.Players); err != nil {
		return fmt.Errorf("decode players: %w", err)
	}

	return nil
}

// CreateBoard saves a new board
func (s *Storage) CreateBoard(ctx context.Context, board *models.Board) error {
	row, err := encodeBoard(board)
	if err != nil {
		return err
	}

	return s.inTransaction(ctx, func(tx *sql.Tx) error {
		_, err := sq.Insert("boards").
			Columns(boardColumns...).
			Values(board.ID, board.Title, board.Description, board.CreatedAt, board.UpdatedAt,
				board.Owner, row.editors, row.cards, row.players).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("%w: insert board: %w", storage.ErrStoreIO, err)
		}

		return syncPlayers(ctx, tx, board)
	})
}

// GetBoard retrieves board by ID
func (s *Storage) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	boards, err := s.queryBoards(ctx, sq.Select(boardColumns...).From("boards").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, storage.ErrBoardNotFound
	}

	return boards[0], nil
}

// GetBoards retrieves boards by IDs
func (s *Storage) GetBoards(ctx context.Context, ids []string) ([]*models.Board, error) {
	if len(ids) == 0 {
		return []*models.Board{}, nil
	}

	return s.queryBoards(ctx, sq.Select(boardColumns...).
		From("boards").
		Where(sq.Eq{"id": ids}).
		OrderBy("created_at DESC"))
}

// GetOwnedBoards returns boards of the owner, newest first
func (s *Storage) GetOwnedBoards(ctx context.Context, ownerID string, limit int) ([]*models.Board, error) {
	q := sq.Select(boardColumns...).
		From("boards").
		Where(sq.Eq{"owner": ownerID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	return s.queryBoards(ctx, q)
}

// GetParticipatingBoards returns boards where user plays but does not own
func (s *Storage) GetParticipatingBoards(ctx context.Context, userID string) ([]*models.Board, error) {
	q := sq.Select(prefixed("b", boardColumns)...).
		From("boards b").
		Join("board_players bp ON bp.board_id = b.id").
		Where(sq.Eq{"bp.user_id": userID}).
		Where(sq.NotEq{"b.owner": userID}).
		OrderBy("b.updated_at DESC")

	return s.queryBoards(ctx, q)
}

// UpdateBoard replaces mutable board fields
func (s *Storage) UpdateBoard(ctx context.Context, board *models.Board) error {
	row, err := encodeBoard(board)
	if err != nil {
		return err
	}

	return s.inTransaction(ctx, func(tx *sql.Tx) error {
		result, err := sq.Update("boards").
			Set("title", board.Title).
			Set("description", board.Description).
			Set("updated_at", board.UpdatedAt).
			Set("editors", row.editors).
			Set("cards", row.cards).
			Set("players", row.players).
			Where(sq.Eq{"id": board.ID}).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("%w: update board: %w", storage.ErrStoreIO, err)
		}
		if err := expectOneRow(result, storage.ErrBoardNotFound); err != nil {
			return err
		}

		return syncPlayers(ctx, tx, board)
	})
}

// DeleteBoard deletes board by ID
func (s *Storage) DeleteBoard(ctx context.Context, id string) error {
	result, err := sq.Delete("boards").Where(sq.Eq{"id": id}).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete board: %w", storage.ErrStoreIO, err)
	}

	return expectOneRow(result, storage.ErrBoardNotFound)
}

func (s *Storage) queryBoards(ctx context.Context, q sq.SelectBuilder) ([]*models.Board, error) {
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query boards: %w", storage.ErrStoreIO, err)
	}
	defer rows.Close()

	boards := make([]*models.Board, 0)
	for rows.Next() {
		b := &models.Board{}
		row := &boardRow{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.CreatedAt, &b.UpdatedAt,
			&b.Owner, &row.editors, &row.cards, &row.players); err != nil {
			return nil, fmt.Errorf("%w: scan board: %w", storage.ErrStoreIO, err)
		}
		if err := decodeBoard(b, row); err != nil {
			return nil, fmt.Errorf("%w: board %s: %w", storage.ErrStoreIO, b.ID, err)
		}
		boards = append(boards, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate boards: %w", storage.ErrStoreIO, err)
	}

	return boards, nil
}

// syncPlayers приводит board_players в соответствие со списком игроков доски
func syncPlayers(ctx context.Context, tx *sql.Tx, board *models.Board) error {
	if _, err := sq.Delete("board_players").Where(sq.Eq{"board_id": board.ID}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("%w: clear players: %w", storage.ErrStoreIO, err)
	}
	if len(board.Players) == 0 {
		return nil
	}

	q := sq.Insert("board_players").Columns("board_id", "user_id").Options("OR IGNORE")
	for _, p := range board.Players {
		q = q.Values(board.ID, p.Player)
	}
	if _, err := q.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("%w: insert players: %w", storage.ErrStoreIO, err)
	}

	return nil
}

func (s *Storage) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", storage.ErrStoreIO, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrStoreIO, err)
	}

	return nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
