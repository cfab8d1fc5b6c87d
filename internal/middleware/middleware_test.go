package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware(false)

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(5, 60)(handler)
		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(1, 60)(handler)

		// First request should succeed
		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)

		// Second request should be rate limited
		w = httptest.NewRecorder()
		handlerCalled = false
		rateLimitHandler.ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, w.Body.String())
	})

	t.Run("window slides", func(t *testing.T) {
		m := NewRateLimitMiddleware(false)
		now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }
		handler := m.RateLimit(1, 10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
		req.RemoteAddr = "10.0.0.1:1"

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		now = now.Add(11 * time.Second)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("idle clients are dropped", func(t *testing.T) {
		m := NewRateLimitMiddleware(false)
		now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }
		handler := m.RateLimit(5, 10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
			req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
			req.RemoteAddr = addr
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}
		assert.Len(t, m.requests, 3)

		now = now.Add(11 * time.Second)
		req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
		req.RemoteAddr = "10.0.0.4:1"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Len(t, m.requests, 1)
		assert.Contains(t, m.requests, "10.0.0.4")
	})

	t.Run("forwarded header ignored without trusted proxy", func(t *testing.T) {
		handler := NewRateLimitMiddleware(false).RateLimit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		for i, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
			req := httptest.NewRequest("POST", "/api/upload-gpx", nil)
			req.RemoteAddr = "192.0.2.50:4000"
			req.Header.Set("X-Forwarded-For", spoofed)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if i == 0 {
				assert.Equal(t, http.StatusOK, w.Code)
			} else {
				assert.Equal(t, http.StatusTooManyRequests, w.Code)
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		calls := 0
		handler := NewRateLimitMiddleware(false).RateLimit(0, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		for i := 0; i < 3; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/upload-gpx", nil))
		}
		assert.Equal(t, 3, calls)
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:80", true, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", true, "198.51.100.2"},
		{"remote addr", nil, "192.0.2.9:5555", true, "192.0.2.9"},
		{"forwarded for untrusted", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.1:80", false, "10.0.0.1"},
		{"real ip untrusted", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", false, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req, tt.trustProxy))
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS("http://localhost:5173")(next)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/files", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/files", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/upload-gpx", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestRequestLogger(t *testing.T) {
	var seen string
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := RequestIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}
