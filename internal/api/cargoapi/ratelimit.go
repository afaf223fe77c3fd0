package cargoapi

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tapango/cargotrack/internal/cache/rediscache"
)

type RateLimiter interface {
	Check(ctx context.Context, bucket, identity string) (rediscache.Decision, error)
}

// withRateLimit - fail-open: недоступный или ненастроенный лимитер
// никогда не валит публичный endpoint. Лимитер защищает от злоупотреблений,
// а не наоборот.
func (s *Server) withRateLimit(bucket string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			slog.Warn("rate limiter not configured, failing open", "bucket", bucket)
			next(w, r)
			return
		}

		d, err := s.limiter.Check(r.Context(), bucket, clientIdentity(r))
		if err != nil {
			slog.Warn("rate limit check failed, failing open", "bucket", bucket, "err", err)
			next(w, r)
			return
		}

		// Заголовки ставим и на успех, чтобы клиент видел остаток квоты.
		if d.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		}

		if !d.Allowed {
			retryAfter := int64(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":      "Too many requests, please try again later",
				"status":     http.StatusTooManyRequests,
				"retryAfter": retryAfter,
			})
			return
		}

		next(w, r)
	}
}

func clientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}
