// Package csrf защита от CSRF по схеме double-submit cookie.
//
// Cookie содержит "<token>|<hex(HMAC-SHA256(secret, binding|token))>",
// заголовок запроса содержит <token>. Binding это идентификатор сессии
// (пустая строка для анонимного запроса), поэтому токен другой сессии не подходит.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

const (
	tokenBytes = 18
	separator  = "|"
	// hostPrefix требует Secure, Path=/ и запрещает Domain
	hostPrefix = "__Host-"
)

var (
	// ErrValidationFailed общий отказ проверки, наружу отдается только он
	ErrValidationFailed = errors.New("csrf validation failed")

	// ErrMissingToken нет cookie или заголовка
	ErrMissingToken = errors.New("csrf token missing")
	// ErrMismatch заголовок не совпадает с cookie или подпись cookie неверна
	ErrMismatch = errors.New("csrf token mismatch")
)

// Config параметры сервиса
type Config struct {
	// Secrets [0] подписывает новые cookie, при проверке принимается любой
	Secrets     []string
	SafeMethods []string
	CookieName  string
	HeaderName  string
	// Secure cookie только по HTTPS, имя получает префикс __Host-
	Secure bool
}

// Service выдает и проверяет CSRF токены
type Service struct {
	secrets    [][]byte
	safe       []string
	cookieName string
	headerName string
	secure     bool
}

// NewService создает сервис; пустой список секретов недопустим
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secrets) == 0 {
		return nil, errors.New("at least one csrf secret is required")
	}

	keys := make([][]byte, 0, len(cfg.Secrets))
	for i, s := range cfg.Secrets {
		if s == "" {
			return nil, fmt.Errorf("csrf secret #%d is empty", i)
		}
		keys = append(keys, []byte(s))
	}

	safe := cfg.SafeMethods
	if len(safe) == 0 {
		safe = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}
	upper := make([]string, len(safe))
	for i, m := range safe {
		upper[i] = strings.ToUpper(m)
	}

	name := cfg.CookieName
	if name == "" {
		name = "csrf"
	}
	if cfg.Secure && !strings.HasPrefix(name, hostPrefix) {
		name = hostPrefix + name
	}

	header := cfg.HeaderName
	if header == "" {
		header = "x-csrf-token"
	}

	return &Service{
		secrets:    keys,
		safe:       upper,
		cookieName: name,
		headerName: header,
		secure:     cfg.Secure,
	}, nil
}

// CookieName имя cookie с учетом префикса
func (s *Service) CookieName() string {
	return s.cookieName
}

// HeaderName имя заголовка с токеном
func (s *Service) HeaderName() string {
	return s.headerName
}

// IsSafe метод не требует проверки токена
func (s *Service) IsSafe(method string) bool {
	return slices.Contains(s.safe, strings.ToUpper(method))
}

// GenerateToken создает новый токен для binding, выставляет cookie и возвращает
// значение для заголовка
func (s *Service) GenerateToken(w http.ResponseWriter, binding string) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token + separator + sign(s.secrets[0], binding, token),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, nil
}

// Validate проверяет токен запроса. Безопасные методы проходят без проверки.
// Ошибка всегда оборачивает ErrValidationFailed
func (s *Service) Validate(r *http.Request, binding string) error {
	if s.IsSafe(r.Method) {
		return nil
	}

	header := r.Header.Get(s.headerName)
	cookie, err := r.Cookie(s.cookieName)
	if header == "" || err != nil || cookie.Value == "" {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrMissingToken)
	}

	token, mac, ok := strings.Cut(cookie.Value, separator)
	if !ok || token == "" {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrMismatch)
	}

	if subtle.ConstantTimeCompare([]byte(header), []byte(token)) != 1 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrMismatch)
	}

	got, err := hex.DecodeString(mac)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ErrMismatch)
	}

	for _, secret := range s.secrets {
		if hmac.Equal(got, sum(secret, binding, token)) {
			return nil
		}
	}

	return fmt.Errorf("%w: %w", ErrValidationFailed, ErrMismatch)
}

func sum(secret []byte, binding, token string) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(binding))
	m.Write([]byte(separator))
	m.Write([]byte(token))
	return m.Sum(nil)
}

func sign(secret []byte, binding, token string) string {
	return hex.EncodeToString(sum(secret, binding, token))
}
