// Package password хеширует и проверяет пароли пользователей.
//
// Вход memory-hard функции: password || salt || pepper, где salt хранится
// в конце записи (см. пакет credential), а pepper берется из конфигурации
// и никогда не сохраняется.
package password

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/iudanet/bingo/internal/credential"
)

// Операции для ObserveFunc
const (
	OpHash   = "hash"
	OpVerify = "verify"
)

// ObserveFunc получает длительность каждой операции (метрики)
type ObserveFunc func(op string, elapsed time.Duration)

// Hasher хеширует и проверяет пароли. Безопасен для конкурентного использования
type Hasher struct {
	sem     chan struct{}
	observe ObserveFunc
	// dummy запись для выравнивания времени ответа при отсутствии пользователя
	dummy string
	opts  Options
}

// NewHasher создает Hasher с проверкой параметров
func NewHasher(opts Options) (*Hasher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	h := &Hasher{
		opts: opts,
		sem:  make(chan struct{}, opts.Concurrency),
	}

	dummy, err := h.hash(context.Background(), "dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy record: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// SetObserver устанавливает наблюдателя длительности операций.
// Вызывается до начала обслуживания запросов
func (h *Hasher) SetObserver(fn ObserveFunc) {
	h.observe = fn
}

// Options возвращает копию параметров
func (h *Hasher) Options() Options {
	return h.opts
}

// Hash возвращает новую запись пароля с текущим перцем
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return h.hash(ctx, password)
}

func (h *Hasher) hash(ctx context.Context, password string) (string, error) {
	raw, err := randomBytes(h.opts.SaltLength / 2)
	if err != nil {
		return "", err
	}
	salt := hex.EncodeToString(raw)
	version, pepper := h.opts.currentPepper()

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	body, err := h.opts.computeBody(input(password, salt, pepper))
	h.release()
	h.report(OpHash, start)
	if err != nil {
		return "", err
	}

	return credential.Encode(version, body, salt)
}

// Verify проверяет пароль по записи.
//
// Перебираются все настроенные перцы по порядку; для записей с тегом "0"
// или неизвестным тегом сначала пробуется вариант без перца. Неразборная
// запись, чужой алгоритм и несовпадение дают false без ошибки. Ошибка
// возвращается только для пустого пароля и отмены контекста.
func (h *Hasher) Verify(ctx context.Context, password, record string) (bool, error) {
	if password == "" {
		return false, ErrEmptyPassword
	}

	rec, err := credential.Decode(record, h.opts.SaltLength)
	if err != nil {
		return false, nil
	}

	candidates := h.opts.Peppers
	if !h.opts.knownVersion(rec.PepperVersion) {
		candidates = append([]string{""}, h.opts.Peppers...)
	}

	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()
	start := time.Now()
	defer h.report(OpVerify, start)

	for _, pepper := range candidates {
		if h.opts.matchBody(input(password, rec.Salt, pepper), rec.HashBody) {
			return true, nil
		}
	}

	return false, nil
}

// VerifyDummy выполняет проверку против заранее подготовленной записи.
// Используется при входе с несуществующим email, чтобы время ответа
// не отличалось от неверного пароля
func (h *Hasher) VerifyDummy(ctx context.Context, password string) {
	if password == "" {
		password = "x"
	}
	_, _ = h.Verify(ctx, password, h.dummy)
}

// NeedsRehash сообщает, что запись создана со старым перцем или параметрами
// и должна быть пересчитана после успешной проверки
func (h *Hasher) NeedsRehash(record string) bool {
	rec, err := credential.Decode(record, h.opts.SaltLength)
	if err != nil {
		return true
	}

	version, _ := h.opts.currentPepper()
	if rec.PepperVersion != version {
		return true
	}

	return h.opts.bodyOutdated(rec.HashBody)
}

// acquire занимает слот семафора, ожидание прерывается отменой контекста
func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for hash slot: %w", ctx.Err())
	}
}

func (h *Hasher) release() {
	<-h.sem
}

func (h *Hasher) report(op string, start time.Time) {
	if h.observe != nil {
		h.observe(op, time.Since(start))
	}
}

func input(password, salt, pepper string) []byte {
	return []byte(password + salt + pepper)
}
