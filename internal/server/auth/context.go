package auth

import (
	"context"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/session"
)

// State состояние аутентификации запроса
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Context результат аутентификации запроса: Anonymous или Authenticated{user}.
// Вычисляется заново для каждого запроса, нулевое значение анонимно
type Context struct {
	// Session может быть не nil и для анонимного запроса (сессия без пользователя)
	Session *session.Session
	user    *models.User
	state   State
}

// Anonymous анонимный запрос
func Anonymous(s *session.Session) Context {
	return Context{Session: s, state: StateAnonymous}
}

// Authenticated запрос пользователя user
func Authenticated(s *session.Session, user *models.User) Context {
	return Context{Session: s, user: user, state: StateAuthenticated}
}

// State возвращает состояние
func (c Context) State() State {
	return c.state
}

// IsAuthenticated true для Authenticated
func (c Context) IsAuthenticated() bool {
	return c.state == StateAuthenticated && c.user != nil
}

// User пользователь или nil
func (c Context) User() *models.User {
	if !c.IsAuthenticated() {
		return nil
	}
	return c.user
}

// UserID идентификатор пользователя или пустая строка
func (c Context) UserID() string {
	if u := c.User(); u != nil {
		return u.ID
	}
	return ""
}

// Binding значение, к которому привязывается CSRF токен (id сессии)
func (c Context) Binding() string {
	if c.Session == nil {
		return ""
	}
	return c.Session.ID
}

type contextKey struct{}

// WithContext сохраняет Context в context.Context запроса
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext извлекает Context; без middleware запрос считается анонимным
func FromContext(ctx context.Context) Context {
	ac, _ := ctx.Value(contextKey{}).(Context)
	return ac
}
