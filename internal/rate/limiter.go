package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters. A zero MaxLoginAttempts or
// MaxSignUpAttempts disables that limiter.
type Config struct {
	Prefix                string
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxSignUpAttempts     int
	SignUpWindow          time.Duration
}

// Limiter enforces per-email budgets for failed sign-ins and account
// creation using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the email has used up its failed
// sign-in budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	count, err := l.redis.Get(ctx, l.loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed sign-in for email.
func (l *Limiter) IncrementLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	_, err := l.incrementWithTTL(ctx, l.loginKey(email), l.config.LoginCooldownDuration)
	return err
}

// ResetLogin clears the failed sign-in counter after a successful sign-in.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	if err := l.redis.Del(ctx, l.loginKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failed sign-in counter for email.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// EnforceSignUp counts an account creation attempt for email and returns
// ErrRateLimited when the window budget is exceeded.
func (l *Limiter) EnforceSignUp(ctx context.Context, email string) error {
	if l.config.MaxSignUpAttempts <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.signUpKey(email), l.config.SignUpWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignUpAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) loginKey(email string) string {
	return l.config.Prefix + "rl:login:" + email
}

func (l *Limiter) signUpKey(email string) string {
	return l.config.Prefix + "rl:signup:" + email
}
