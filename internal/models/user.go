package models

import "time"

// AccountType роль пользователя
type AccountType string

const (
	AccountUser  AccountType = "user"
	AccountAdmin AccountType = "admin"
)

// User представляет пользователя в системе
type User struct {
	CreatedAt   time.Time   `json:"created_at"`           // время создания
	LastLogin   *time.Time  `json:"last_login,omitempty"` // время последнего входа
	ID          string      `json:"id"`                   // UUID пользователя
	Password    string      `json:"-"`                    // запись пароля (credential record), наружу не отдается
	Email       string      `json:"email"`                // уникальный email (в нижнем регистре)
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	Birthday    string      `json:"birthday,omitempty"` // YYYY-MM-DD
	AvatarURL   string      `json:"avatar_url,omitempty"`
	AccountType AccountType `json:"account_type"`
}

// IsAdmin проверяет административную роль
func (u *User) IsAdmin() bool {
	return u != nil && u.AccountType == AccountAdmin
}
