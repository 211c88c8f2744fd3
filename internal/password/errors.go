package password

import "errors"

var (
	// ErrEmptyPassword хеширование или проверка пустого пароля (ошибка вызывающего кода)
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrInvalidOption параметр хеширования вне допустимого диапазона
	ErrInvalidOption = errors.New("invalid hash option")

	// ErrUnsupportedAlgorithm неизвестный алгоритм
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// errInvalidHash hashBody не разбирается (наружу не отдается, Verify возвращает false)
	errInvalidHash = errors.New("invalid hash body")
)
