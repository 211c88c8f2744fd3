// Package auth аутентификация запросов и потоки входа, регистрации и выхода
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/metrics"
	"github.com/iudanet/bingo/internal/server/session"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/validation"
)

var (
	// ErrInvalidCredentials неизвестный email или неверный пароль, без уточнения
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailInUse email уже зарегистрирован
	ErrEmailInUse = errors.New("email already in use")
	// ErrUnauthenticated маршрут требует аутентификации
	ErrUnauthenticated = errors.New("authentication required")
)

// Recorder счетчики попыток входа и регистраций
type Recorder interface {
	LoginAttempt(result string)
	Signup()
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string) {}
func (nopRecorder) Signup()             {}

// Config политика паролей
type Config struct {
	MinPasswordLength int
	MaxPasswordLength int
}

// Service композиция хранилища пользователей, hasher и менеджера сессий
type Service struct {
	users    storage.UserStorage
	hasher   *password.Hasher
	sessions *session.Manager
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	cfg      Config
}

// NewService создает сервис аутентификации; recorder может быть nil
func NewService(
	users storage.UserStorage,
	hasher *password.Hasher,
	sessions *session.Manager,
	cfg Config,
	logger *slog.Logger,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.MinPasswordLength < 1 {
		cfg.MinPasswordLength = 1
	}
	if cfg.MaxPasswordLength < cfg.MinPasswordLength {
		cfg.MaxPasswordLength = 128
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Sessions менеджер сессий
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Resolve определяет состояние запроса по cookie сессии.
// Ошибка возвращается только при сбое хранилища
func (s *Service) Resolve(ctx context.Context, r *http.Request) (Context, error) {
	sess, err := s.sessions.Load(ctx, r)
	if err != nil {
		return Context{}, err
	}
	if sess == nil || sess.UserID() == "" {
		return Anonymous(sess), nil
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// пользователь удален, сессия больше ничего не дает
			return Anonymous(sess), nil
		}
		return Context{}, err
	}

	return Authenticated(sess, user), nil
}

// Login проверяет email и пароль и создает новую сессию (id ротируется).
// Неизвестный email и неверный пароль дают одинаковую ErrInvalidCredentials
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, current Context, email, pw string) (Context, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			s.recorder.LoginAttempt(metrics.LoginError)
			return Context{}, err
		}
		// выравниваем время ответа с веткой неверного пароля
		s.hasher.VerifyDummy(ctx, pw)
		s.recorder.LoginAttempt(metrics.LoginFailure)
		return Context{}, ErrInvalidCredentials
	}

	if pw == "" {
		s.recorder.LoginAttempt(metrics.LoginFailure)
		return Context{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, pw, user.Password)
	if err != nil {
		s.recorder.LoginAttempt(metrics.LoginError)
		return Context{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "Login failed", slog.String("user_id", user.ID))
		s.recorder.LoginAttempt(metrics.LoginFailure)
		return Context{}, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.Password) {
		s.rehash(ctx, user, pw)
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "Failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLogin = &now
	}

	sess, err := s.sessions.Regenerate(ctx, w, current.Session, user.ID)
	if err != nil {
		s.recorder.LoginAttempt(metrics.LoginError)
		return Context{}, err
	}

	s.logger.InfoContext(ctx, "User logged in", slog.String("user_id", user.ID))
	s.recorder.LoginAttempt(metrics.LoginSuccess)

	return Authenticated(sess, user), nil
}

// rehash перезаписывает запись пароля текущими параметрами и перцем.
// Ошибка не мешает входу: старая запись остается рабочей
func (s *Service) rehash(ctx context.Context, user *models.User, pw string) {
	record, err := s.hasher.Hash(ctx, pw)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to rehash password", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, record); err != nil {
		s.logger.WarnContext(ctx, "Failed to store rehashed password", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.Password = record
	s.logger.InfoContext(ctx, "Password record upgraded", slog.String("user_id", user.ID))
}

// SignupInput данные регистрации
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Birthday  string
	AvatarURL string
}

// Signup создает пользователя и сессию. Ошибки валидации имеют тип *validation.Error
func (s *Service) Signup(ctx context.Context, w http.ResponseWriter, current Context, in SignupInput) (Context, error) {
	in.Email = validation.NormalizeEmail(in.Email)

	if err := validation.ValidateSignup(validation.Signup{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Birthday:  in.Birthday,
		AvatarURL: in.AvatarURL,
	}, s.cfg.MinPasswordLength, s.cfg.MaxPasswordLength); err != nil {
		return Context{}, err
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return Context{}, ErrEmailInUse
	case !errors.Is(err, storage.ErrUserNotFound):
		return Context{}, err
	}

	record, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return Context{}, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Password:    record,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Birthday:    in.Birthday,
		AvatarURL:   in.AvatarURL,
		AccountType: models.AccountUser,
		CreatedAt:   s.now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// гонка двух регистраций с одним email
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return Context{}, ErrEmailInUse
		}
		return Context{}, err
	}

	sess, err := s.sessions.Regenerate(ctx, w, current.Session, user.ID)
	if err != nil {
		return Context{}, err
	}

	s.logger.InfoContext(ctx, "User registered", slog.String("user_id", user.ID))
	s.recorder.Signup()

	return Authenticated(sess, user), nil
}

// Logout удаляет сессию и cookie
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, current Context) error {
	if err := s.sessions.Destroy(ctx, w, current.Session); err != nil {
		return err
	}
	if current.IsAuthenticated() {
		s.logger.InfoContext(ctx, "User logged out", slog.String("user_id", current.UserID()))
	}
	return nil
}
