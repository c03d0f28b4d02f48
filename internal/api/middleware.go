package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/metrics"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/redis"
)

// UserHeader carries the authenticated user id, set by the upstream gateway.
const UserHeader = "X-User-ID"

type userKey struct{}

// RequireUser rejects requests without a valid X-User-ID and stores the
// parsed id in the request context.
func RequireUser(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserHeader)
			userID, err := uuid.Parse(raw)
			if raw == "" || err != nil || userID == uuid.Nil {
				logger.Debug("rejecting request without valid user id", zap.String("path", r.URL.Path))
				writeProblem(w, http.StatusUnauthorized, ErrorResponse{
					Type:   "unauthorized",
					Title:  "Missing or invalid user",
					Status: http.StatusUnauthorized,
					Detail: UserHeader + " header must be a valid UUID",
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the id stored by RequireUser, or uuid.Nil.
func UserFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}

// Limiter is satisfied by *redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (*redis.RateLimitResult, error)
	Limit() int
}

// RateLimitMiddleware creates an HTTP middleware that enforces rate limits.
// The keyFunc extracts the rate limit key from the request (e.g., user ID, IP).
// Limiter errors fail open.
func RateLimitMiddleware(limiter Limiter, logger *zap.Logger, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				metrics.RecordRateLimitRejection()
				retryAfter := int(time.Until(result.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeProblem(w, http.StatusTooManyRequests, ErrorResponse{
					Type:   "rate_limit_exceeded",
					Title:  "Too Many Requests",
					Status: http.StatusTooManyRequests,
					Detail: "Rate limit exceeded. Please retry after the specified time.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserKeyFunc keys the limiter on the X-User-ID header.
func UserKeyFunc(r *http.Request) string {
	if userID := r.Header.Get(UserHeader); userID != "" {
		return "user:" + userID
	}
	return ""
}

func writeProblem(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
