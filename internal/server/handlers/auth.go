package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/csrf"
	"github.com/iudanet/bingo/internal/validation"
	"github.com/iudanet/bingo/pkg/api"
)

// AuthHandler обрабатывает вход, регистрацию, выход и выдачу CSRF токена
type AuthHandler struct {
	responder
	auth *auth.Service
	csrf *csrf.Service
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, authService *auth.Service, csrfService *csrf.Service) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		auth:      authService,
		csrf:      csrfService,
	}
}

// CSRF обрабатывает GET /api/csrf
// Выдает токен, привязанный к текущей сессии, и обновляет cookie
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	token, err := h.csrf.GenerateToken(w, ac.Binding())
	if err != nil {
		h.internalError(w, r, "failed to generate csrf token", err)
		return
	}

	h.sendJSON(w, api.CSRFResponse{CSRF: token}, http.StatusOK)
}

// Signup обрабатывает POST /api/signup (JSON или form)
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignupRequest
	if isForm(r) {
		if err := parseForm(w, r); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req = api.SignupRequest{
			Email:     r.PostFormValue("email"),
			Password:  r.PostFormValue("password"),
			FirstName: r.PostFormValue("first_name"),
			LastName:  r.PostFormValue("last_name"),
			Birthday:  r.PostFormValue("birthday"),
			AvatarURL: r.PostFormValue("avatar_url"),
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ac, err := h.auth.Signup(ctx, w, auth.FromContext(ctx), auth.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Birthday:  req.Birthday,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case validation.IsValidationError(err):
			h.sendError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, auth.ErrEmailInUse):
			h.sendError(w, auth.ErrEmailInUse.Error(), http.StatusConflict)
		default:
			h.internalError(w, r, "failed to sign up", err)
		}
		return
	}

	h.sendAuthenticated(w, r, ac, http.StatusCreated)
}

// Login обрабатывает POST /api/login (form или JSON)
// Неизвестный email и неверный пароль дают одинаковый ответ 401
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if isForm(r) {
		if err := parseForm(w, r); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req = api.LoginRequest{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	} else if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		h.sendError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	ac, err := h.auth.Login(ctx, w, auth.FromContext(ctx), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.sendError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		h.internalError(w, r, "failed to log in", err)
		return
	}

	h.sendAuthenticated(w, r, ac, http.StatusOK)
}

// Logout обрабатывает POST /api/logout и выдает новый анонимный CSRF токен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Logout(ctx, w, auth.FromContext(ctx)); err != nil {
		h.internalError(w, r, "failed to log out", err)
		return
	}

	token, err := h.csrf.GenerateToken(w, "")
	if err != nil {
		h.internalError(w, r, "failed to generate csrf token", err)
		return
	}

	h.sendJSON(w, api.CSRFResponse{CSRF: token}, http.StatusOK)
}

// Me обрабатывает GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, toUserResponse(auth.FromContext(r.Context()).User()), http.StatusOK)
}

// sendAuthenticated отвечает данными пользователя и CSRF токеном новой сессии
func (h *AuthHandler) sendAuthenticated(w http.ResponseWriter, r *http.Request, ac auth.Context, status int) {
	token, err := h.csrf.GenerateToken(w, ac.Binding())
	if err != nil {
		h.internalError(w, r, "failed to generate csrf token", err)
		return
	}

	h.sendJSON(w, api.AuthResponse{User: toUserResponse(ac.User()), CSRF: token}, status)
}

func toUserResponse(u *models.User) api.UserResponse {
	return api.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Birthday:    u.Birthday,
		AvatarURL:   u.AvatarURL,
		AccountType: string(u.AccountType),
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}
