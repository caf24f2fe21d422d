package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-(i+1), decision.Remaining)
		}
	}

	decision, err := limiter.Allow(ctx, "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth request in the window must be denied")
	}
	if decision.ResetAt != now.Add(time.Minute) {
		t.Fatalf("expected reset at window end, got %v", decision.ResetAt)
	}
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	if decision, _ := limiter.Allow(ctx, "k", 1, time.Minute); !decision.Allowed {
		t.Fatal("first request should pass")
	}
	if decision, _ := limiter.Allow(ctx, "k", 1, time.Minute); decision.Allowed {
		t.Fatal("second request in window should be denied")
	}

	now = now.Add(61 * time.Second)
	if decision, _ := limiter.Allow(ctx, "k", 1, time.Minute); !decision.Allowed {
		t.Fatal("a fresh window should admit again")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	ctx := context.Background()

	if decision, _ := limiter.Allow(ctx, "a", 1, time.Minute); !decision.Allowed {
		t.Fatal("key a should pass")
	}
	if decision, _ := limiter.Allow(ctx, "b", 1, time.Minute); !decision.Allowed {
		t.Fatal("key b must not share key a's window")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	for i := 0; i < 10; i++ {
		decision, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
		if err != nil || !decision.Allowed {
			t.Fatalf("zero limit must disable limiting, got %v %v", decision, err)
		}
	}
}
