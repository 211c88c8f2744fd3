package api

import "time"

// SignupRequest запрос регистрации (JSON или form)
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Birthday  string `json:"birthday,omitempty"`   // YYYY-MM-DD
	AvatarURL string `json:"avatar_url,omitempty"` // http(s) URL
}

// LoginRequest запрос входа (JSON или form)
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse публичные данные пользователя, без записи пароля
type UserResponse struct {
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Birthday    string     `json:"birthday,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	AccountType string     `json:"account_type"`
}

// AuthResponse ответ на вход и регистрацию.
// CSRF новый токен: сессия сменилась, старый токен больше не подходит
type AuthResponse struct {
	User UserResponse `json:"user"`
	CSRF string       `json:"csrf"`
}

// CSRFResponse ответ GET /api/csrf
type CSRFResponse struct {
	CSRF string `json:"csrf"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // текст HTTP статуса
	Message string `json:"message,omitempty"` // безопасное для клиента пояснение
}

// HealthResponse ответ GET /api/health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}
