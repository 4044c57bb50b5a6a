package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "feedback:ratelimit:192.0.2.10"

// noExpiry is what TTL reports for a key that exists without a timeout.
const noExpiry = time.Duration(-1)

func expectHit(mock redismock.ClientMock, count int64, ttl time.Duration) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(testKey).SetVal(count)
	mock.ExpectTTL(testKey).SetVal(ttl)
	mock.ExpectTxPipelineExec()
}

func TestRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("first hit starts the window", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		expectHit(mock, 1, noExpiry)
		mock.ExpectExpire(testKey, time.Minute).SetVal(true)

		allowed, remaining, reset, err := NewRateLimiter(client, 3, time.Minute, nil).Allow(ctx, "192.0.2.10")

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2, remaining)
		assert.Equal(t, time.Minute, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hits within the limit are allowed", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		expectHit(mock, 3, 40*time.Second)

		allowed, remaining, reset, err := NewRateLimiter(client, 3, time.Minute, nil).Allow(ctx, "192.0.2.10")

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 0, remaining)
		assert.Equal(t, 40*time.Second, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hits over the limit are refused with the remaining window", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		expectHit(mock, 4, 20*time.Second)

		allowed, _, reset, err := NewRateLimiter(client, 3, time.Minute, nil).Allow(ctx, "192.0.2.10")

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 20*time.Second, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a failed expire is retried on the next hit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		limiter := NewRateLimiter(client, 3, time.Minute, nil)

		expectHit(mock, 1, noExpiry)
		mock.ExpectExpire(testKey, time.Minute).SetErr(errors.New("i/o timeout"))
		_, _, _, err := limiter.Allow(ctx, "192.0.2.10")
		require.Error(t, err)

		// the counter kept growing without a timeout
		expectHit(mock, 500, noExpiry)
		mock.ExpectExpire(testKey, time.Minute).SetVal(true)
		allowed, _, reset, err := limiter.Allow(ctx, "192.0.2.10")

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis errors are returned", func(t *testing.T) {
		// no expectations: every command fails
		client, _ := redismock.NewClientMock()

		_, _, _, err := NewRateLimiter(client, 3, time.Minute, nil).Allow(ctx, "192.0.2.10")

		assert.Error(t, err)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(l *RateLimiter, onLimited func()) *gin.Engine {
		router := gin.New()
		router.Use(l.Middleware(onLimited))
		router.POST("/feedback", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	send := func(router *gin.Engine) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/feedback", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("allows requests under the limit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		expectHit(mock, 1, noExpiry)
		mock.ExpectExpire(testKey, time.Minute).SetVal(true)

		w := send(newRouter(NewRateLimiter(client, 5, time.Minute, nil), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("blocks requests over the limit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		expectHit(mock, 6, 42*time.Second)

		limited := 0
		w := send(newRouter(NewRateLimiter(client, 5, time.Minute, nil), func() { limited++ }))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "42", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "RateLimited")
		assert.Equal(t, 1, limited)
	})

	t.Run("fails open when redis is unavailable", func(t *testing.T) {
		client, _ := redismock.NewClientMock()

		w := send(newRouter(NewRateLimiter(client, 5, time.Minute, nil), nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates an ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get("X-Request-ID")
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps an incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "from-proxy")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "from-proxy", w.Header().Get("X-Request-ID"))
	})
}
