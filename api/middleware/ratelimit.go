package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// WindowLimiter is the slice of the redis client the rate limiter needs.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window limit keyed by scope and caller identity.
// A limiter outage fails open: slowing attackers is not worth an outage.
func RateLimit(limiter WindowLimiter, logg *logger.Logger, scope string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := scope
			if userID := UserIDFromContext(ctx); userID != uuid.Nil {
				key = scope + ":" + userID.String()
			} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = scope + ":" + host
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, key, limit, window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "scope", scope), "rate limiter unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests").
						WithDetails(map[string]any{"count": count}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
