package appMiddleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careconnect/portal-api/config"
)

func limiterFixture(t *testing.T, maxRequests int, window time.Duration) (*miniredis.Miniredis, http.Handler) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:     true,
		Window:      window,
		MaxRequests: maxRequests,
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mr, RateLimit(cfg, rdb, slog.Default())(ok)
}

func hit(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitWithinWindow(t *testing.T) {
	_, handler := limiterFixture(t, 2, time.Minute)

	assert.Equal(t, http.StatusOK, hit(handler).Code)
	assert.Equal(t, http.StatusOK, hit(handler).Code)

	rr := hit(handler)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestRateLimitWindowClosesDespiteRetries(t *testing.T) {
	mr, handler := limiterFixture(t, 2, time.Minute)

	// Exhaust the window.
	hit(handler)
	hit(handler)
	require.Equal(t, http.StatusTooManyRequests, hit(handler).Code)

	// A retry just inside the window is still rejected but must not push
	// the expiry out; only the opening request arms the TTL.
	mr.FastForward(59 * time.Second)
	require.Equal(t, http.StatusTooManyRequests, hit(handler).Code)

	mr.FastForward(2 * time.Second)
	assert.Equal(t, http.StatusOK, hit(handler).Code)
}

func TestRateLimitExpiryArmedOnce(t *testing.T) {
	mr, handler := limiterFixture(t, 1, time.Minute)

	hit(handler)
	require.Equal(t, http.StatusTooManyRequests, hit(handler).Code)

	// The rejected retry must not have pushed the expiry out.
	mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit(handler).Code)
}

func TestRateLimitDegradesOpenOnRedisOutage(t *testing.T) {
	mr, handler := limiterFixture(t, 1, time.Minute)

	mr.Close()
	assert.Equal(t, http.StatusOK, hit(handler).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false}
	handler := RateLimit(cfg, nil, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, hit(handler).Code)
	}
}
