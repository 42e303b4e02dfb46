package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/serroba/message-ratelimiter/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testOutput struct {
	Body string `json:"body"`
}

func setupTestAPI(t *testing.T) (*chi.Mux, huma.API, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)

	router := chi.NewMux()
	router.Use(chimiddleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestLog(zap.New(core)))

	huma.Get(api, "/test", func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return &testOutput{Body: "ok"}, nil
	})

	huma.Get(api, "/fail", func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return nil, huma.Error500InternalServerError("boom")
	})

	return router, api, logs
}

func TestRequestLog(t *testing.T) {
	t.Run("logs method path status and request id", func(t *testing.T) {
		router, _, logs := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		entries := logs.FilterMessage("request served").AllUntimed()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, http.MethodGet, fields["method"])
		assert.Equal(t, "/test", fields["path"])
		assert.EqualValues(t, http.StatusOK, fields["status"])
		assert.NotEmpty(t, fields["requestId"])
		assert.Contains(t, fields, "duration")
	})

	t.Run("logs server errors at error level", func(t *testing.T) {
		router, _, logs := setupTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/fail", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		entries := logs.FilterMessage("request served").AllUntimed()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.EqualValues(t, http.StatusInternalServerError, entries[0].ContextMap()["status"])
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{
			name:     "single forwarded address",
			headers:  map[string]string{"X-Forwarded-For": "192.168.1.1"},
			expected: "192.168.1.1",
		},
		{
			name:     "first of forwarded chain",
			headers:  map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1, 172.16.0.1"},
			expected: "192.168.1.1",
		},
		{
			name:     "real ip header",
			headers:  map[string]string{"X-Real-IP": "10.0.0.5"},
			expected: "10.0.0.5",
		},
		{
			name:     "remote address",
			remote:   "172.16.0.9:51234",
			expected: "172.16.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewMux()
			api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))

			captured := make(chan string, 1)

			api.UseMiddleware(func(ctx huma.Context, next func(huma.Context)) {
				captured <- middleware.ClientIP(ctx)

				next(ctx)
			})

			huma.Get(api, "/test", func(_ context.Context, _ *struct{}) (*testOutput, error) {
				return &testOutput{Body: "ok"}, nil
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}

			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expected, <-captured)
		})
	}
}
