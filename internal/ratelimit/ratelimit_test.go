package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d rejected inside the limit", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("request over the limit was admitted")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "1.2.3.4"); !allowed {
		t.Fatal("first key rejected")
	}
	if allowed, _ := limiter.Allow(ctx, "5.6.7.8"); !allowed {
		t.Error("second key rejected because of the first key's traffic")
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	limiter := NewMemoryLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "1.2.3.4"); !allowed {
		t.Fatal("first request rejected")
	}
	if allowed, _ := limiter.Allow(ctx, "1.2.3.4"); allowed {
		t.Fatal("second request admitted inside the window")
	}

	time.Sleep(20 * time.Millisecond)

	if allowed, _ := limiter.Allow(ctx, "1.2.3.4"); !allowed {
		t.Error("request rejected after the window expired")
	}
}

func TestMemoryLimiterEvictsExpiredWindows(t *testing.T) {
	limiter := NewMemoryLimiter(5, 10*time.Millisecond)
	ctx := context.Background()

	for _, key := range []string{"1.2.3.4", "5.6.7.8", "9.10.11.12"} {
		if _, err := limiter.Allow(ctx, key); err != nil {
			t.Fatalf("Allow(%s) error = %v", key, err)
		}
	}

	time.Sleep(25 * time.Millisecond)

	if _, err := limiter.Allow(ctx, "13.14.15.16"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	limiter.mu.Lock()
	remaining := len(limiter.windows)
	limiter.mu.Unlock()

	if remaining != 1 {
		t.Errorf("windows map holds %d entries after expiry, want only the fresh key", remaining)
	}
}

func TestSimpleRateLimiterPacesCalls(t *testing.T) {
	limiter := NewSimpleRateLimiter(30*time.Millisecond, 30*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("second Wait() returned after %v, want at least the configured delay", elapsed)
	}
}

func TestSimpleRateLimiterHonorsCancellation(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Minute, time.Minute)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait() with cancelled context returned nil")
	}
}
