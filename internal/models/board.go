package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CardType способ отметки карточки
type CardType string

const (
	CardQRCode      CardType = "QR Code"
	CardHonorSystem CardType = "Honor System"
	CardGiven       CardType = "Given"
	CardUserInput   CardType = "User Input"
)

// Valid проверяет, что тип карточки известен
func (t CardType) Valid() bool {
	switch t {
	case CardQRCode, CardHonorSystem, CardGiven, CardUserInput:
		return true
	}
	return false
}

// Card карточка доски. В БД хранится кортежем [title, description, required, type]
type Card struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        CardType `json:"type"`
	Required    bool     `json:"required"`
}

// cardTuple формат хранения карточки
type cardTuple [4]any

// MarshalTuple кодирует карточку в кортеж
func (c Card) MarshalTuple() ([]byte, error) {
	return json.Marshal(cardTuple{c.Title, c.Description, c.Required, string(c.Type)})
}

// UnmarshalTuple разбирает кортеж [title, description, required, type]
func (c *Card) UnmarshalTuple(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("card tuple: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("card tuple: expected 4 elements, got %d", len(raw))
	}

	var typ string
	for i, dst := range []any{&c.Title, &c.Description, &c.Required, &typ} {
		if err := json.Unmarshal(raw[i], dst); err != nil {
			return fmt.Errorf("card tuple element %d: %w", i, err)
		}
	}
	c.Type = CardType(typ)

	return nil
}

// Completion отметка карточки игроком: флаг или текстовый ответ (для User Input)
type Completion struct {
	Response string
	Done     bool
}

// MarshalJSON кодирует отметку как bool или строку
func (c Completion) MarshalJSON() ([]byte, error) {
	if c.Response != "" {
		return json.Marshal(c.Response)
	}
	return json.Marshal(c.Done)
}

// UnmarshalJSON принимает bool, 0/1 или строку
func (c *Completion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("1")):
		*c = Completion{Done: true}
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("0")), bytes.Equal(data, []byte("null")):
		*c = Completion{}
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("completion must be bool or string: %w", err)
		}
		*c = Completion{Done: s != "", Response: s}
	}
	return nil
}

// PlayerStats прогресс игрока по доске
type PlayerStats struct {
	Player string       `json:"player"` // UUID игрока
	Cards  []Completion `json:"cards"`
}

// Board доска бинго
type Board struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Owner       string        `json:"owner"`
	Editors     []string      `json:"editors"`
	Cards       []Card        `json:"cards"`
	Players     []PlayerStats `json:"players"`
	CreatedAt   int64         `json:"created_at"` // unix ms
	UpdatedAt   int64         `json:"updated_at"` // unix ms
}

// CanEdit владелец или редактор
func (b *Board) CanEdit(userID string) bool {
	if b.Owner == userID {
		return true
	}
	for _, e := range b.Editors {
		if e == userID {
			return true
		}
	}
	return false
}

// PlayerIndex возвращает индекс игрока в Players или -1
func (b *Board) PlayerIndex(userID string) int {
	for i, p := range b.Players {
		if p.Player == userID {
			return i
		}
	}
	return -1
}
