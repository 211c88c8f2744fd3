package validation

import (
	"math"

	"github.com/google/uuid"

	"github.com/iudanet/bingo/internal/models"
)

// Границы полей доски
const (
	MaxBoardTitleLen       = 64
	MaxBoardDescriptionLen = 2048
	MaxCardTitleLen        = 64
	MaxCardDescriptionLen  = 2048
	MaxResponseLen         = 2048
	// MaxCards ограничивает размер доски (10x10)
	MaxCards = 100
)

// ValidateBoard проверяет заголовок, описание, редакторов и карточки доски
func ValidateBoard(title, description string, editors []string, cards []models.Card) error {
	if err := checkLength("title", "board title", title, 1, MaxBoardTitleLen); err != nil {
		return err
	}
	if err := checkLength("description", "board description", description, 1, MaxBoardDescriptionLen); err != nil {
		return err
	}
	for _, e := range editors {
		if err := ValidateUUID("editors", e); err != nil {
			return err
		}
	}
	return ValidateCards(cards)
}

// ValidateCards количество карточек должно быть точным квадратом (n x n)
func ValidateCards(cards []models.Card) error {
	if len(cards) == 0 {
		return newError("cards", "board must have at least one card")
	}
	if len(cards) > MaxCards {
		return newError("cards", "board can not have more than %d cards", MaxCards)
	}
	if side := int(math.Sqrt(float64(len(cards)))); side*side != len(cards) {
		return newError("cards", "number of cards must be a perfect square")
	}

	for _, c := range cards {
		if err := checkLength("cards", "card title", c.Title, 1, MaxCardTitleLen); err != nil {
			return err
		}
		if err := checkLength("cards", "card description", c.Description, 1, MaxCardDescriptionLen); err != nil {
			return err
		}
		if !c.Type.Valid() {
			return newError("cards", "invalid card type")
		}
	}
	return nil
}

// ValidateProgress проверяет отметки игрока относительно карточек доски.
// Текстовый ответ допустим только для карточек типа User Input
func ValidateProgress(cards []models.Card, progress []models.Completion) error {
	if len(progress) != len(cards) {
		return newError("cards", "expected %d completion entries, got %d", len(cards), len(progress))
	}
	for i, p := range progress {
		if p.Response == "" {
			continue
		}
		if cards[i].Type != models.CardUserInput {
			return newError("cards", "card %d does not accept a response", i)
		}
		if err := checkLength("cards", "response", p.Response, 1, MaxResponseLen); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUUID проверяет идентификатор пользователя или доски
func ValidateUUID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return newError(field, "invalid %s id", field)
	}
	return nil
}
