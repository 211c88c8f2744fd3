// Package session управляет сессиями пользователей: подписанная cookie
// с идентификатором сессии и payload в storage.SessionStore.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
)

// idBytes длина случайной части идентификатора сессии
const idBytes = 32

// Config параметры сессий и cookie
type Config struct {
	CookieName string
	TTL        time.Duration
	// TouchInterval минимальный интервал между продлениями одной сессии
	TouchInterval time.Duration
	// Secure выставляется вне development окружения
	Secure bool
}

// Session загруженная сессия запроса
type Session struct {
	Expire time.Time
	Data   *models.SessionData
	ID     string
}

// UserID возвращает id пользователя или пустую строку для анонимной сессии
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Data.UserID()
}

// Manager создает, загружает, продлевает и удаляет сессии
type Manager struct {
	store  storage.SessionStore
	codec  *CookieCodec
	logger *slog.Logger
	now    func() time.Time
	cfg    Config
}

// NewManager создает менеджер сессий
func NewManager(store storage.SessionStore, codec *CookieCodec, cfg Config, logger *slog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = storage.DefaultSessionTTL
	}

	return &Manager{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// NewID генерирует идентификатор сессии: 32 случайных байта, base64url
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Load загружает сессию по cookie запроса.
// Отсутствующая, поддельная или истекшая сессия дает (nil, nil).
// Ошибка возвращается только при сбое хранилища
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return nil, nil
	}

	sid, err := m.codec.Decode(cookie.Value)
	if err != nil {
		m.logger.DebugContext(ctx, "Rejected session cookie", slog.Any("error", err))
		return nil, nil
	}

	data, err := m.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	expire := data.Cookie.Expires
	if expire.IsZero() {
		expire = m.now().Add(m.cfg.TTL)
	}

	return &Session{ID: sid, Data: data, Expire: expire}, nil
}

// Start создает новую сессию для userID и выставляет cookie
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID string) (*Session, error) {
	sid, err := NewID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	expire := now.Add(m.cfg.TTL)
	data := &models.SessionData{
		Cookie: models.SessionCookie{
			Expires:  expire,
			MaxAge:   m.cfg.TTL.Milliseconds(),
			HTTPOnly: true,
			Secure:   m.cfg.Secure,
		},
		TouchedAt: now.UnixMilli(),
	}
	if userID != "" {
		data.User = &models.SessionUser{ID: userID}
	}

	if err := m.store.Set(ctx, sid, data, expire); err != nil {
		return nil, err
	}

	s := &Session{ID: sid, Data: data, Expire: expire}
	if err := m.writeCookie(w, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Regenerate удаляет старую сессию (если есть) и создает новую с новым id
func (m *Manager) Regenerate(ctx context.Context, w http.ResponseWriter, old *Session, userID string) (*Session, error) {
	if old != nil {
		if err := m.store.Destroy(ctx, old.ID); err != nil {
			return nil, err
		}
	}
	return m.Start(ctx, w, userID)
}

// Touch продлевает сессию (rolling expiry), не чаще TouchInterval
func (m *Manager) Touch(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s == nil {
		return nil
	}

	now := m.now()
	if now.Sub(time.UnixMilli(s.Data.TouchedAt)) < m.cfg.TouchInterval {
		return nil
	}

	expire := now.Add(m.cfg.TTL)

	// store.Touch обновляет срок и payload только живой сессии;
	// ErrSessionNotFound уходит вызывающему
	if err := m.store.Touch(ctx, s.ID, expire); err != nil {
		return err
	}

	s.Data.TouchedAt = now.UnixMilli()
	s.Data.Cookie.Expires = expire
	s.Expire = expire

	return m.writeCookie(w, s)
}

// Destroy удаляет сессию и cookie
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s != nil {
		if err := m.store.Destroy(ctx, s.ID); err != nil {
			return err
		}
	}

	m.setCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Store возвращает хранилище (административные операции)
func (m *Manager) Store() storage.SessionStore {
	return m.store
}

func (m *Manager) writeCookie(w http.ResponseWriter, s *Session) error {
	value, err := m.codec.Encode(s.ID, s.Expire)
	if err != nil {
		return err
	}

	m.setCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  s.Expire,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// setCookie заменяет ранее выставленную в этом ответе cookie сессии:
// после Touch в middleware logout или login отдают одну Set-Cookie
func (m *Manager) setCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="

	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(w, c)
}

// visibleIDChars сколько символов id сессии остается после маскирования
const visibleIDChars = 6

// MaskID оставляет начало id сессии для сопоставления записей в выводе
// администратора; полный id не показывается
func MaskID(sid string) string {
	if len(sid) <= visibleIDChars {
		return "***"
	}
	return sid[:visibleIDChars] + "***"
}
