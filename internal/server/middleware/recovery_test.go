package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/bingo/pkg/api"
)

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		handler        http.HandlerFunc
		name           string
		expectedStatus int
		expectPanic    bool
	}{
		{
			name: "Normal handler without panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("success"))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Handler with panic (string)",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("something went wrong")
			},
			expectPanic:    true,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "Handler with panic (custom type)",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(struct{ msg string }{"critical error"})
			},
			expectPanic:    true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RecoveryMiddleware(logger)(tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
			w := httptest.NewRecorder()

			assert.NotPanics(t, func() { handler.ServeHTTP(w, req) })
			assert.Equal(t, tt.expectedStatus, w.Code)

			if !tt.expectPanic {
				assert.Equal(t, "success", w.Body.String())
				return
			}

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "Internal Server Error", resp.Error)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.NotContains(t, resp.Message, "critical error", "детали паники не отдаются клиенту")
		})
	}
}

func TestRecoveryMiddleware_AbortHandlerRepanics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoveryMiddleware_LogsStackTrace(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/bingo", nil))

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Panic recovered")
	assert.Contains(t, logOutput, "test panic")
	assert.Contains(t, logOutput, "stack")
	assert.Contains(t, logOutput, "/api/bingo")
}

func TestRecoveryMiddleware_ChainWithOtherMiddleware(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := RecoveryMiddleware(logger)(
		LoggingMiddleware(logger, nil)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic("chained panic")
			}),
		),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logBuf.String(), "chained panic")
}
