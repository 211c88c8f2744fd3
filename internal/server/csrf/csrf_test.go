package csrf

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, secrets ...string) *Service {
	t.Helper()
	s, err := NewService(Config{Secrets: secrets})
	require.NoError(t, err)
	return s
}

// issue выдает токен и возвращает его вместе с cookie
func issue(t *testing.T, s *Service, binding string) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	token, err := s.GenerateToken(rec, binding)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return token, cookies[0]
}

func postRequest(token string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/bingo", nil)
	if token != "" {
		req.Header.Set("x-csrf-token", token)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestNewService(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)

	_, err = NewService(Config{Secrets: []string{"a", ""}})
	assert.Error(t, err)

	s, err := NewService(Config{Secrets: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "csrf", s.CookieName())
	assert.Equal(t, "x-csrf-token", s.HeaderName())

	secure, err := NewService(Config{Secrets: []string{"a"}, CookieName: "csrf", Secure: true})
	require.NoError(t, err)
	assert.Equal(t, "__Host-csrf", secure.CookieName())
}

func TestService_IsSafe(t *testing.T) {
	s := newTestService(t, "secret")

	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, "get"} {
		assert.True(t, s.IsSafe(m), m)
	}
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.False(t, s.IsSafe(m), m)
	}

	custom, err := NewService(Config{Secrets: []string{"a"}, SafeMethods: []string{"get"}})
	require.NoError(t, err)
	assert.True(t, custom.IsSafe(http.MethodGet))
	assert.False(t, custom.IsSafe(http.MethodHead))
}

func TestService_GenerateToken(t *testing.T) {
	s, err := NewService(Config{Secrets: []string{"secret"}, Secure: true})
	require.NoError(t, err)

	first, cookie := issue(t, s, "sid")
	second, _ := issue(t, s, "sid")
	assert.NotEqual(t, first, second)

	assert.Equal(t, "__Host-csrf", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, strings.HasPrefix(cookie.Value, first+"|"))
}

func TestService_Validate(t *testing.T) {
	s := newTestService(t, "secret")
	token, cookie := issue(t, s, "sid-1")

	otherToken, otherCookie := issue(t, s, "sid-2")
	foreign := newTestService(t, "attacker")
	foreignToken, foreignCookie := issue(t, foreign, "sid-1")

	forged := *cookie
	forged.Value = token + "|" + strings.Repeat("00", 32)

	noMAC := *cookie
	noMAC.Value = token

	tests := []struct {
		req     *http.Request
		wantErr error
		name    string
		binding string
	}{
		{name: "valid", req: postRequest(token, cookie), binding: "sid-1"},
		{name: "safe method skips check", req: httptest.NewRequest(http.MethodGet, "/", nil), binding: "sid-1"},
		{name: "missing header", req: postRequest("", cookie), binding: "sid-1", wantErr: ErrMissingToken},
		{name: "missing cookie", req: postRequest(token, nil), binding: "sid-1", wantErr: ErrMissingToken},
		{name: "header mismatch", req: postRequest(otherToken, cookie), binding: "sid-1", wantErr: ErrMismatch},
		{name: "other session", req: postRequest(otherToken, otherCookie), binding: "sid-1", wantErr: ErrMismatch},
		{name: "foreign secret", req: postRequest(foreignToken, foreignCookie), binding: "sid-1", wantErr: ErrMismatch},
		{name: "forged mac", req: postRequest(token, &forged), binding: "sid-1", wantErr: ErrMismatch},
		{name: "cookie without mac", req: postRequest(token, &noMAC), binding: "sid-1", wantErr: ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.req, tt.binding)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidationFailed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_SecretRotation(t *testing.T) {
	old := newTestService(t, "old")
	token, cookie := issue(t, old, "")

	rotated := newTestService(t, "new", "old")
	require.NoError(t, rotated.Validate(postRequest(token, cookie), ""))

	// новые cookie подписываются первым секретом
	freshToken, freshCookie := issue(t, rotated, "")
	require.NoError(t, newTestService(t, "new").Validate(postRequest(freshToken, freshCookie), ""))

	dropped := newTestService(t, "new")
	assert.ErrorIs(t, dropped.Validate(postRequest(token, cookie), ""), ErrValidationFailed)
}
