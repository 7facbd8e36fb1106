package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_server_error"}`, rec.Body.String())
}

func TestClientThrottle_PerClientBuckets(t *testing.T) {
	throttle := NewClientThrottle(1, 2)
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	throttle.now = func() time.Time { return now }

	assert.True(t, throttle.Allow("10.0.0.1"))
	assert.True(t, throttle.Allow("10.0.0.1"))
	assert.False(t, throttle.Allow("10.0.0.1"), "burst spent")
	assert.True(t, throttle.Allow("10.0.0.2"), "other clients are independent")

	now = now.Add(time.Second)
	assert.True(t, throttle.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, throttle.Allow("10.0.0.1"))
}

func TestClientThrottle_SweepsIdleClients(t *testing.T) {
	throttle := NewClientThrottle(1, 1)
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	throttle.now = func() time.Time { return now }

	throttle.Allow("a")
	throttle.Allow("b")
	require.Len(t, throttle.clients, 2)

	now = now.Add(11 * time.Minute)
	throttle.Allow("c")
	assert.Len(t, throttle.clients, 1)
	assert.Contains(t, throttle.clients, "c")
}

func TestClientThrottle_Middleware(t *testing.T) {
	throttle := NewClientThrottle(0.001, 1)
	h := throttle.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/generate/chat", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("192.0.2.1:1234").Code)

	rec := send("192.0.2.1:5678")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "same host, different port")
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, send("192.0.2.2:1234").Code)
}

func TestClientThrottle_Defaults(t *testing.T) {
	throttle := NewClientThrottle(0, 0)
	assert.InDelta(t, 5, float64(throttle.limit), 0)
	assert.Equal(t, 10, throttle.burst)
}
