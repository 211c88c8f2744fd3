package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/internal/logging"
	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/auth"
	"github.com/iudanet/bingo/internal/server/csrf"
	"github.com/iudanet/bingo/internal/server/session"
	"github.com/iudanet/bingo/internal/server/storage/sqlite"
)

type fixture struct {
	store *sqlite.Storage
	auth  *auth.Service
	csrf  *csrf.Service
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher, err := password.NewHasher(password.Options{
		Peppers:     []string{"pepper"},
		Algorithm:   password.AlgorithmArgon2id,
		MemoryCost:  64,
		TimeCost:    1,
		Threads:     1,
		SaltLength:  password.DefaultSaltLength,
		Concurrency: 2,
	})
	require.NoError(t, err)

	codec, err := session.NewCookieCodec([]string{"session-secret"})
	require.NoError(t, err)
	manager := session.NewManager(store, codec, session.Config{CookieName: "bingo.sid", TTL: time.Hour}, logging.Discard())

	csrfService, err := csrf.NewService(csrf.Config{Secrets: []string{"csrf-secret"}})
	require.NoError(t, err)

	return &fixture{
		store: store,
		auth:  auth.NewService(store, hasher, manager, auth.Config{MinPasswordLength: 8, MaxPasswordLength: 128}, logging.Discard(), nil),
		csrf:  csrfService,
	}
}

// createUser сохраняет пользователя напрямую, минуя хеширование
func (f *fixture) createUser(t *testing.T, accountType models.AccountType) *models.User {
	t.Helper()
	id := uuid.New().String()
	user := &models.User{
		ID:          id,
		Password:    "0$argon2id$unused",
		Email:       id + "@example.com",
		AccountType: accountType,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

// asUser добавляет в запрос auth.Context пользователя
func asUser(r *http.Request, user *models.User) *http.Request {
	ac := auth.Authenticated(&session.Session{ID: "sid-" + user.ID}, user)
	return r.WithContext(auth.WithContext(r.Context(), ac))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
