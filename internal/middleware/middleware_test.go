package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2, IdleTimeout: time.Minute})
	r := newEngine(RateLimitMiddleware(limiter))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	w := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimitDisabled(t *testing.T) {
	r := newEngine(RateLimitMiddleware(NewIPRateLimiter(RateLimiterConfig{})))
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, get(r, nil).Code)
	}
}

func TestCleanupRemovesIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTimeout: time.Minute})
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("a")
	now = now.Add(45 * time.Second)
	limiter.GetLimiter("b")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, limiter.Cleanup())
	assert.Equal(t, 1, limiter.Len())
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := get(r, nil)
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	incoming := uuid.NewString()
	w = get(r, map[string]string{RequestIDHeader: incoming})
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	w = get(r, map[string]string{RequestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestLoggerIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := newEngine(RequestID(), Logger(&logger))

	id := uuid.NewString()
	get(r, map[string]string{RequestIDHeader: id})

	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"path":"/ping"`)
}
