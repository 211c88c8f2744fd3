package password

import (
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm идентификатор memory-hard функции
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmArgon2i  Algorithm = "argon2i"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

// Параметры по умолчанию (подобраны под ~100ms на хеш)
const (
	// DefaultMemoryCost - объем памяти в KiB
	DefaultMemoryCost = 7168
	// DefaultTimeCost - количество итераций (для bcrypt это cost)
	DefaultTimeCost = 5
	// DefaultThreads - параллелизм argon2
	DefaultThreads = 1
	// DefaultSaltLength - длина соли в hex-символах (16 байт)
	DefaultSaltLength = 32

	// minSaltLength - минимум 8 байт случайности
	minSaltLength = 16
	// innerSaltLen - соль внутри PHC строки, в байтах
	innerSaltLen = 16
	// keyLen - длина выходного ключа argon2 в байтах
	keyLen = 32

	// maxCostFactor - во сколько раз параметры записи могут превышать текущие.
	// Запись с большими m/t/p не пересчитывается и дает false
	maxCostFactor = 4
	// maxBcryptCostDelta - то же для bcrypt: cost логарифмический, +2 = x4
	maxBcryptCostDelta = 2
	// maxKeyLen - предел длины ключа argon2 в записи
	maxKeyLen = 4 * keyLen
)

// Options конфигурация хеширования. Не сохраняется, читается из конфига при старте
type Options struct {
	// Peppers упорядоченный список перцев: [0] текущий, остальные только для проверки
	Peppers     []string
	Algorithm   Algorithm
	MemoryCost  uint32
	TimeCost    uint32
	SaltLength  int
	Concurrency int
	Threads     uint8
}

// DefaultOptions возвращает параметры по умолчанию без перца
func DefaultOptions() Options {
	return Options{
		Algorithm:   AlgorithmArgon2id,
		MemoryCost:  DefaultMemoryCost,
		TimeCost:    DefaultTimeCost,
		Threads:     DefaultThreads,
		SaltLength:  DefaultSaltLength,
		Concurrency: runtime.NumCPU(),
	}
}

// Validate проверяет параметры
func (o Options) Validate() error {
	switch o.Algorithm {
	case AlgorithmArgon2id, AlgorithmArgon2i:
		if o.TimeCost < 1 {
			return fmt.Errorf("%w: time cost must be >= 1, got %d", ErrInvalidOption, o.TimeCost)
		}
		if o.Threads < 1 {
			return fmt.Errorf("%w: threads must be >= 1, got %d", ErrInvalidOption, o.Threads)
		}
		if o.MemoryCost < 8*uint32(o.Threads) {
			return fmt.Errorf("%w: memory cost (%d KiB) must be >= 8*threads", ErrInvalidOption, o.MemoryCost)
		}
	case AlgorithmBcrypt:
		if int(o.TimeCost) < bcrypt.MinCost || int(o.TimeCost) > bcrypt.MaxCost {
			return fmt.Errorf("%w: bcrypt cost must be in [%d, %d], got %d",
				ErrInvalidOption, bcrypt.MinCost, bcrypt.MaxCost, o.TimeCost)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, o.Algorithm)
	}

	if o.SaltLength < minSaltLength || o.SaltLength%2 != 0 {
		return fmt.Errorf("%w: salt length must be even and >= %d, got %d", ErrInvalidOption, minSaltLength, o.SaltLength)
	}

	for i, p := range o.Peppers {
		if p == "" {
			return fmt.Errorf("%w: pepper #%d is empty", ErrInvalidOption, i)
		}
	}

	return nil
}

// currentPepper возвращает тег версии и значение перца для новых хешей.
// Тег перца с индексом i в списке длины n равен n-i, поэтому добавление
// нового перца в начало списка не меняет теги старых.
func (o Options) currentPepper() (string, string) {
	if len(o.Peppers) == 0 {
		return "0", ""
	}
	return strconv.Itoa(len(o.Peppers)), o.Peppers[0]
}

// knownVersion проверяет, что тег соответствует одному из настроенных перцев
func (o Options) knownVersion(version string) bool {
	n, err := strconv.Atoi(version)
	if err != nil {
		return false
	}
	return n >= 1 && n <= len(o.Peppers)
}
