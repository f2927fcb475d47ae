package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

// FixedWindowFunc matches redis.Client.FixedWindowAllow.
type FixedWindowFunc func(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)

// RateLimitPolicy describes a fixed-window limit applied per client IP.
type RateLimitPolicy struct {
	Scope  string
	Limit  int64
	Window time.Duration
}

// RateLimit throttles a route with a fixed window counter keyed by scope and
// client IP. Redis being unreachable fails open; throttling is protection,
// not a correctness dependency.
func RateLimit(limiter FixedWindowFunc, policy RateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || policy.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := policy.Scope + ":" + clientIP(r)
			allowed, _, err := limiter(r.Context(), scope, policy.Limit, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
