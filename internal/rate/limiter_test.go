package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLoginBudgetAndReset(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "a@b.com"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "other@b.com"); err != nil {
		t.Fatalf("other email should not be limited: %v", err)
	}

	n, err := l.LoginAttempts(ctx, "a@b.com")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d (%v)", n, err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}

	_ = l.IncrementLogin(ctx, "a@b.com")
	if err := l.ResetLogin(ctx, "a@b.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "a@b.com"); n != 0 {
		t.Fatalf("expected counter cleared, got %d", n)
	}
}

func TestSignUpWindow(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Prefix: "cl:", MaxSignUpAttempts: 2, SignUpWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.EnforceSignUp(ctx, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := l.EnforceSignUp(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestDisabledLimitersNeverTouchRedis(t *testing.T) {
	l, mr := newTestLimiter(t, Config{})
	mr.Close()
	ctx := context.Background()

	if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
		t.Fatalf("disabled CheckLogin: %v", err)
	}
	if err := l.IncrementLogin(ctx, "a@b.com"); err != nil {
		t.Fatalf("disabled IncrementLogin: %v", err)
	}
	if err := l.EnforceSignUp(ctx, "a@b.com"); err != nil {
		t.Fatalf("disabled EnforceSignUp: %v", err)
	}
}

func TestRedisFailureIsWrapped(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	if err := l.IncrementLogin(context.Background(), "a@b.com"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
