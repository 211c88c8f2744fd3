package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/internal/logging"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/metrics"
	"github.com/iudanet/bingo/internal/server/session"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/server/storage/sqlite"
	"github.com/iudanet/bingo/internal/validation"
)

type countingRecorder struct {
	mu      sync.Mutex
	logins  map[string]int
	signups int
}

func (r *countingRecorder) LoginAttempt(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins[result]++
}

func (r *countingRecorder) Signup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signups++
}

type testEnv struct {
	service  *Service
	store    *sqlite.Storage
	recorder *countingRecorder
}

func hashOptions(peppers ...string) password.Options {
	return password.Options{
		Peppers:     peppers,
		Algorithm:   password.AlgorithmArgon2id,
		MemoryCost:  64,
		TimeCost:    1,
		Threads:     1,
		SaltLength:  password.DefaultSaltLength,
		Concurrency: 2,
	}
}

func setupTestService(t *testing.T, peppers ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return newEnv(t, store, peppers...)
}

func newEnv(t *testing.T, store *sqlite.Storage, peppers ...string) *testEnv {
	t.Helper()

	hasher, err := password.NewHasher(hashOptions(peppers...))
	require.NoError(t, err)

	codec, err := session.NewCookieCodec([]string{"session-secret"})
	require.NoError(t, err)

	manager := session.NewManager(store, codec, session.Config{
		CookieName: "bingo.sid",
		TTL:        time.Hour,
	}, logging.Discard())

	rec := &countingRecorder{logins: map[string]int{}}
	svc := NewService(store, hasher, manager, Config{MinPasswordLength: 8, MaxPasswordLength: 128}, logging.Discard(), rec)

	return &testEnv{service: svc, store: store, recorder: rec}
}

func (e *testEnv) signup(t *testing.T, email, pw string) Context {
	t.Helper()
	ac, err := e.service.Signup(context.Background(), httptest.NewRecorder(), Context{}, SignupInput{Email: email, Password: pw})
	require.NoError(t, err)
	return ac
}

// requestWithCookies переносит cookie из ответа в новый запрос
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestService_SignupLoginScenario(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t, "pepper-1")

	rec := httptest.NewRecorder()
	signedUp, err := env.service.Signup(ctx, rec, Context{}, SignupInput{Email: "a@b.com", Password: "Abcdef12"})
	require.NoError(t, err)
	require.True(t, signedUp.IsAuthenticated())
	require.NotNil(t, signedUp.Session)
	assert.Equal(t, StateAuthenticated, signedUp.State())

	// cookie регистрации сразу аутентифицирует следующий запрос
	resolved, err := env.service.Resolve(ctx, requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, signedUp.UserID(), resolved.UserID())

	loggedIn, err := env.service.Login(ctx, httptest.NewRecorder(), Context{}, "a@b.com", "Abcdef12")
	require.NoError(t, err)
	assert.Equal(t, signedUp.UserID(), loggedIn.UserID())
	assert.NotEqual(t, signedUp.Session.ID, loggedIn.Session.ID)
	assert.NotNil(t, loggedIn.User().LastLogin)

	_, err = env.service.Login(ctx, httptest.NewRecorder(), Context{}, "a@b.com", "WrongPass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, 1, env.recorder.signups)
	assert.Equal(t, 1, env.recorder.logins[metrics.LoginSuccess])
	assert.Equal(t, 1, env.recorder.logins[metrics.LoginFailure])
}

func TestService_LoginNoUserEnumeration(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.signup(t, "real@example.com", "Abcdef12")

	_, missing := env.service.Login(ctx, httptest.NewRecorder(), Context{}, "nonexistent@example.com", "anything")
	_, wrong := env.service.Login(ctx, httptest.NewRecorder(), Context{}, "real@example.com", "wrongpassword")

	require.Error(t, missing)
	require.Error(t, wrong)
	assert.ErrorIs(t, missing, ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, ErrInvalidCredentials)
	assert.Equal(t, missing.Error(), wrong.Error())

	_, empty := env.service.Login(ctx, httptest.NewRecorder(), Context{}, "real@example.com", "")
	assert.ErrorIs(t, empty, ErrInvalidCredentials)
}

func TestService_LoginEmailCaseInsensitive(t *testing.T) {
	env := setupTestService(t)
	signedUp := env.signup(t, "Alice@Example.com", "Abcdef12")

	ac, err := env.service.Login(context.Background(), httptest.NewRecorder(), Context{}, " ALICE@example.COM ", "Abcdef12")
	require.NoError(t, err)
	assert.Equal(t, signedUp.UserID(), ac.UserID())
	assert.Equal(t, "alice@example.com", ac.User().Email)
}

func TestService_LoginRotatesSession(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.signup(t, "a@b.com", "Abcdef12")

	anon, err := env.service.Sessions().Start(ctx, httptest.NewRecorder(), "")
	require.NoError(t, err)

	ac, err := env.service.Login(ctx, httptest.NewRecorder(), Anonymous(anon), "a@b.com", "Abcdef12")
	require.NoError(t, err)
	assert.NotEqual(t, anon.ID, ac.Session.ID)

	_, err = env.store.Get(ctx, anon.ID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound, "старая сессия не должна пережить вход")
}

func TestService_LoginRehashesAfterPepperRotation(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t, "P1")
	signedUp := env.signup(t, "a@b.com", "Abcdef12")
	oldRecord := signedUp.User().Password

	rotated := newEnv(t, env.store, "P2", "P1")
	ac, err := rotated.service.Login(ctx, httptest.NewRecorder(), Context{}, "a@b.com", "Abcdef12")
	require.NoError(t, err)

	user, err := env.store.GetUserByID(ctx, ac.UserID())
	require.NoError(t, err)
	assert.NotEqual(t, oldRecord, user.Password)
	assert.Equal(t, "2$", user.Password[:2])

	// старый перец больше не нужен
	dropped := newEnv(t, env.store, "P2")
	_, err = dropped.service.Login(ctx, httptest.NewRecorder(), Context{}, "a@b.com", "Abcdef12")
	require.NoError(t, err)
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.signup(t, "taken@example.com", "Abcdef12")

	tests := []struct {
		input   SignupInput
		wantErr error
		name    string
		invalid bool
	}{
		{name: "email in use", input: SignupInput{Email: "taken@example.com", Password: "Abcdef12"}, wantErr: ErrEmailInUse},
		{name: "email in use other case", input: SignupInput{Email: "TAKEN@example.com", Password: "Abcdef12"}, wantErr: ErrEmailInUse},
		{name: "short password", input: SignupInput{Email: "new@example.com", Password: "short"}, invalid: true},
		{name: "bad email", input: SignupInput{Email: "not-an-email", Password: "Abcdef12"}, invalid: true},
		{name: "bad birthday", input: SignupInput{Email: "new@example.com", Password: "Abcdef12", Birthday: "yesterday"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			_, err := env.service.Signup(ctx, rec, Context{}, tt.input)
			require.Error(t, err)
			if tt.invalid {
				assert.True(t, validation.IsValidationError(err))
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, rec.Result().Cookies(), "при ошибке сессия не создается")
		})
	}

	ac, err := env.service.Signup(ctx, httptest.NewRecorder(), Context{}, SignupInput{
		Email: "full@example.com", Password: "Abcdef12", FirstName: "Alice", LastName: "Smith", Birthday: "1990-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", ac.User().FirstName)
	assert.False(t, ac.User().IsAdmin())
}

func TestService_ResolveAndLogout(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)

	// без cookie
	ac, err := env.service.Resolve(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.False(t, ac.IsAuthenticated())
	assert.Empty(t, ac.Binding())

	rec := httptest.NewRecorder()
	signedUp, err := env.service.Signup(ctx, rec, Context{}, SignupInput{Email: "a@b.com", Password: "Abcdef12"})
	require.NoError(t, err)

	ac, err = env.service.Resolve(ctx, requestWithCookies(rec))
	require.NoError(t, err)
	require.True(t, ac.IsAuthenticated())
	assert.Equal(t, signedUp.Session.ID, ac.Binding())

	require.NoError(t, env.service.Logout(ctx, httptest.NewRecorder(), ac))

	ac, err = env.service.Resolve(ctx, requestWithCookies(rec))
	require.NoError(t, err)
	assert.False(t, ac.IsAuthenticated(), "после выхода cookie больше не аутентифицирует")
}

func TestService_ResolveDeletedUser(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)

	rec := httptest.NewRecorder()
	signedUp, err := env.service.Signup(ctx, rec, Context{}, SignupInput{Email: "a@b.com", Password: "Abcdef12"})
	require.NoError(t, err)
	require.NoError(t, env.store.DeleteUser(ctx, signedUp.UserID()))

	ac, err := env.service.Resolve(ctx, requestWithCookies(rec))
	require.NoError(t, err)
	assert.False(t, ac.IsAuthenticated())
	assert.NotNil(t, ac.Session)
}

func TestContext(t *testing.T) {
	var zero Context
	assert.False(t, zero.IsAuthenticated())
	assert.Nil(t, zero.User())
	assert.Equal(t, "anonymous", zero.State().String())

	ctx := WithContext(context.Background(), Authenticated(&session.Session{ID: "sid"}, nil))
	ac := FromContext(ctx)
	assert.False(t, ac.IsAuthenticated(), "Authenticated без пользователя не считается аутентифицированным")
	assert.Equal(t, "sid", ac.Binding())

	assert.False(t, FromContext(context.Background()).IsAuthenticated())
}
