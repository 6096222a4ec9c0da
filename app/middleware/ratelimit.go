package appMiddleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/careconnect/portal-api/config"
	"github.com/careconnect/portal-api/internal/api"
)

// RateLimit returns a fixed-window limiter over redis for the credential
// endpoints (login, register, reset). It degrades open: when redis is
// unreachable the request proceeds, because losing logins to a cache
// outage is worse than briefly losing the limiter.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) func(next http.Handler) http.Handler {
	if !cfg.Enabled || rdb == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := fmt.Sprintf("ratelimit:%s:%s", clientIP(r), r.URL.Path)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.WarnContext(ctx, "Rate limiter redis error, proceeding", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			// Arm the TTL only on the request that opens the window. Later
			// requests, including rejected ones, must not extend it or a
			// paced client would stay locked out past the window.
			if count == 1 {
				if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
					logger.WarnContext(ctx, "Rate limiter redis error, proceeding", slog.Any("error", err))
					next.ServeHTTP(w, r)
					return
				}
			}

			if count > int64(cfg.MaxRequests) {
				retryAfter := cfg.Window
				if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retryAfter = ttl
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr when behind a proxy.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
