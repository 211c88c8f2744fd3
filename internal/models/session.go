package models

import "time"

// SessionUser минимальные данные пользователя в сессии
type SessionUser struct {
	ID string `json:"id"`
}

// SessionCookie параметры cookie, сохраняемые вместе с сессией
type SessionCookie struct {
	Expires  time.Time `json:"expires"`
	MaxAge   int64     `json:"originalMaxAge"` // ms
	HTTPOnly bool      `json:"httpOnly"`
	Secure   bool      `json:"secure"`
}

// SessionData payload сессии. User == nil для анонимной сессии
type SessionData struct {
	User      *SessionUser  `json:"user,omitempty"`
	Cookie    SessionCookie `json:"cookie"`
	TouchedAt int64         `json:"touched_at,omitempty"` // unix ms последнего продления
}

// UserID возвращает id пользователя или пустую строку
func (d *SessionData) UserID() string {
	if d == nil || d.User == nil {
		return ""
	}
	return d.User.ID
}

// SessionEntry строка хранилища сессий (для диагностики)
type SessionEntry struct {
	Expire time.Time    `json:"expire"`
	Data   *SessionData `json:"data"`
	SID    string       `json:"sid"`
}
