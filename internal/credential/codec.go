// Package credential кодирует и разбирает хранимую запись пароля.
//
// Формат записи: <pepperVersion><hashBody><salt>, без разделителей.
// hashBody всегда начинается с '$' (PHC/bcrypt строка), salt занимает
// последние saltLength символов (hex).
package credential

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPepperVersion используется для записей без тега версии (legacy)
// и означает, что перец не применялся
const DefaultPepperVersion = "0"

var (
	// ErrInvalidRecordFormat запись не содержит '$' или слишком короткая для соли
	ErrInvalidRecordFormat = errors.New("invalid credential record format")

	// ErrEmptyHashBody попытка закодировать запись без хеша
	ErrEmptyHashBody = errors.New("hash body cannot be empty")
)

// Record представляет разобранную запись пароля
type Record struct {
	PepperVersion string // тег версии перца, "0" = без перца
	HashBody      string // вывод memory-hard функции с префиксом алгоритма
	Salt          string // hex-encoded соль фиксированной длины
}

// Encode склеивает части записи в одну строку
func Encode(pepperVersion, hashBody, salt string) (string, error) {
	if hashBody == "" {
		return "", ErrEmptyHashBody
	}

	return pepperVersion + hashBody + salt, nil
}

// Decode разбирает запись: всё до первого '$' это версия перца,
// последние saltLength символов остатка это соль, остальное hashBody
func Decode(record string, saltLength int) (Record, error) {
	if saltLength < 0 {
		return Record{}, fmt.Errorf("%w: negative salt length %d", ErrInvalidRecordFormat, saltLength)
	}

	idx := strings.IndexByte(record, '$')
	if idx < 0 {
		return Record{}, fmt.Errorf("%w: missing '$' delimiter", ErrInvalidRecordFormat)
	}

	version := record[:idx]
	rest := record[idx:]

	// hashBody должен содержать хотя бы сам '$'
	if len(rest) <= saltLength {
		return Record{}, fmt.Errorf("%w: record too short for salt length %d", ErrInvalidRecordFormat, saltLength)
	}

	if version == "" {
		version = DefaultPepperVersion
	}

	return Record{
		PepperVersion: version,
		HashBody:      rest[:len(rest)-saltLength],
		Salt:          rest[len(rest)-saltLength:],
	}, nil
}
