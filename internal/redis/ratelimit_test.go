package redis

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func setupTestRateLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	client, _ := setupTestRedis(t)

	return NewRateLimiter(client, zap.NewNop(), RateLimitConfig{
		Limit:  limit,
		Window: window,
	})
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	limiter := setupTestRateLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "user-1")
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 4-i {
			t.Errorf("request %d: expected remaining %d, got %d", i, 4-i, result.Remaining)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	limiter := setupTestRateLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, _ := limiter.Allow(ctx, "user-1")
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	result, err := limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Fatal("request should be blocked")
	}
	if result.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", result.Remaining)
	}
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	limiter := setupTestRateLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = limiter.Allow(ctx, "user-a")
	}

	result, _ := limiter.Allow(ctx, "user-b")
	if !result.Allowed {
		t.Fatal("user-b should be allowed")
	}
	if result.Remaining != 1 {
		t.Errorf("expected remaining 1, got %d", result.Remaining)
	}
}

func TestRateLimiter_AllowN(t *testing.T) {
	limiter := setupTestRateLimiter(t, 10, time.Minute)
	ctx := context.Background()

	result, err := limiter.AllowN(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("should be allowed")
	}
	if result.Remaining != 5 {
		t.Errorf("expected remaining 5, got %d", result.Remaining)
	}

	result, _ = limiter.AllowN(ctx, "user-1", 6)
	if result.Allowed {
		t.Fatal("should be blocked")
	}

	// the rejected batch was not recorded
	result, _ = limiter.AllowN(ctx, "user-1", 5)
	if !result.Allowed {
		t.Fatal("remaining capacity should still be usable")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := setupTestRateLimiter(t, 2, time.Minute)
	ctx := context.Background()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if result, _ := limiter.Allow(ctx, "user-1"); !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if result, _ := limiter.Allow(ctx, "user-1"); result.Allowed {
		t.Fatal("third request in the window should be blocked")
	}

	now = now.Add(61 * time.Second)
	result, err := limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("request after the window should be allowed")
	}
	if !result.ResetAt.Equal(now.Add(time.Minute)) {
		t.Errorf("ResetAt = %v, want %v", result.ResetAt, now.Add(time.Minute))
	}
}
