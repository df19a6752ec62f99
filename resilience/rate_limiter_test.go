package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_AdmitsBurstImmediately(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 10, Burst: 5})

	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("call %d should have been admitted within the burst", i)
		}
	}
	if rl.Allow() {
		t.Error("call beyond the burst should have been rejected")
	}
}

func TestRateLimiter_RefillAdmitsOneMoreCall(t *testing.T) {
	// Rate 20/s: one token refills in 50ms.
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 20, Burst: 1})

	if !rl.Allow() {
		t.Fatal("first call should be admitted")
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow() {
		t.Error("exactly one more call should be admitted after 1/rate seconds")
	}
	if rl.Allow() {
		t.Error("only one token should have refilled")
	}
}

func TestRateLimiter_WaitBlocksUntilToken(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 50, Burst: 1})

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected to wait ~20ms for refill, waited %v", elapsed)
	}
}

func TestRateLimiter_MaxWaitExceededReportsRateLimited(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Name:    "test",
		Rate:    0.1, // one token per 10s
		Burst:   1,
		MaxWait: 20 * time.Millisecond,
	})

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := rl.Wait(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_WaitHonorsCancellation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 0.1, Burst: 1})
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rl.Wait(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unwind promptly on cancellation")
	}

	// The reserved token must be returned on cancellation.
	if rl.Tokens() < -0.5 {
		t.Errorf("reservation leaked on cancellation: %f tokens", rl.Tokens())
	}
}

func TestRateLimiter_OnLimitCallback(t *testing.T) {
	var limited int
	rl := NewRateLimiter(RateLimiterConfig{
		Name:  "test",
		Rate:  0.1,
		Burst: 1,
		OnLimit: func(name string) {
			limited++
		},
	})

	_ = rl.Allow()
	_ = rl.Allow()

	if limited != 1 {
		t.Errorf("expected 1 OnLimit call, got %d", limited)
	}
}

func TestRateLimiter_ExecuteWait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 100, Burst: 1})

	var ran bool
	err := rl.ExecuteWait(context.Background(), func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("function was not run")
	}
}
