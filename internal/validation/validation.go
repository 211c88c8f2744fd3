// Package validation проверка пользовательского ввода (регистрация, доски, прогресс).
// Сообщения ошибок безопасно отдавать клиенту
package validation

import (
	"errors"
	"fmt"
)

// Error ошибка валидации конкретного поля
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError проверяет, что err (или обернутая в нее ошибка) это *Error
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// checkLength проверяет длину строки в символах
func checkLength(field, label, value string, minLen, maxLen int) error {
	n := len([]rune(value))
	if n < minLen {
		return newError(field, "%s is too short", label)
	}
	if n > maxLen {
		return newError(field, "%s is too long", label)
	}
	return nil
}
