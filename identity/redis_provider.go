package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/communitylearn/learnauth/internal/rate"
	"github.com/communitylearn/learnauth/jwt"
	"github.com/communitylearn/learnauth/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config tunes a RedisProvider. Zero values select the defaults.
type Config struct {
	// Prefix namespaces every Redis key the provider writes.
	Prefix   string
	Password password.Config

	MaxLoginAttempts  int
	LoginCooldown     time.Duration
	MaxSignUpAttempts int
	SignUpWindow      time.Duration

	// RefreshWindow is how close to expiry Token reissues the credential.
	RefreshWindow time.Duration
}

// DefaultConfig returns the provider settings used by the server.
func DefaultConfig() Config {
	return Config{
		Prefix:            "cl:",
		Password:          password.DefaultConfig(),
		MaxLoginAttempts:  5,
		LoginCooldown:     15 * time.Minute,
		MaxSignUpAttempts: 5,
		SignUpWindow:      time.Hour,
		RefreshWindow:     5 * time.Minute,
	}
}

type accountRecord struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"passwordHash"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RedisProvider is an email/password identity provider that stores accounts
// in Redis and issues signed credentials. It tracks a single current
// identity, the way a client SDK does for one browser session.
type RedisProvider struct {
	redis   redis.UniversalClient
	config  Config
	hasher  *password.Argon2
	tokens  *jwt.Manager
	limiter *rate.Limiter

	mu      sync.Mutex
	current *Identity
	closed  bool
	notify  *notifier
}

// NewRedisProvider returns a provider using client for storage and tokens
// for credential issuance.
func NewRedisProvider(client redis.UniversalClient, tokens *jwt.Manager, cfg Config) (*RedisProvider, error) {
	if client == nil {
		return nil, errors.New("identity: redis client is nil")
	}
	if tokens == nil {
		return nil, errors.New("identity: credential manager is nil")
	}
	cfg = withDefaults(cfg)

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	return &RedisProvider{
		redis:  client,
		config: cfg,
		hasher: hasher,
		tokens: tokens,
		limiter: rate.New(client, rate.Config{
			Prefix:                cfg.Prefix,
			MaxLoginAttempts:      cfg.MaxLoginAttempts,
			LoginCooldownDuration: cfg.LoginCooldown,
			MaxSignUpAttempts:     cfg.MaxSignUpAttempts,
			SignUpWindow:          cfg.SignUpWindow,
		}),
		notify: newNotifier(),
	}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Password == (password.Config{}) {
		cfg.Password = def.Password
	}
	if cfg.Password.MinPasswordBytes <= 0 {
		cfg.Password.MinPasswordBytes = password.DefaultMinPasswordBytes
	}
	if cfg.Password.MaxPasswordBytes <= 0 {
		cfg.Password.MaxPasswordBytes = password.DefaultMaxPasswordBytes
	}
	if cfg.LoginCooldown <= 0 {
		cfg.LoginCooldown = def.LoginCooldown
	}
	if cfg.SignUpWindow <= 0 {
		cfg.SignUpWindow = def.SignUpWindow
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = def.RefreshWindow
	}
	return cfg
}

// SignIn verifies email and password and makes the account the current
// identity. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (p *RedisProvider) SignIn(ctx context.Context, email, pass string) (*Identity, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if pass == "" {
		return nil, ErrInvalidCredentials
	}

	if err := p.limiter.CheckLogin(ctx, email); err != nil {
		return nil, mapRateError(err)
	}

	acct, err := p.loadAccount(ctx, email)
	if errors.Is(err, redis.Nil) {
		p.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := p.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			p.recordFailure(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !ok {
		p.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if err := p.limiter.ResetLogin(ctx, email); err != nil {
		log.Printf("learnauth: identity: reset login attempts: %v", err)
	}
	p.upgradeHash(ctx, acct, pass)

	return p.establish(acct)
}

// SignUp creates an account and signs it in. The new identity becomes
// current before SignUp returns.
func (p *RedisProvider) SignUp(ctx context.Context, email, pass string) (*Identity, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(pass) < p.config.Password.MinPasswordBytes || len(pass) > p.config.Password.MaxPasswordBytes {
		return nil, ErrWeakPassword
	}

	if err := p.limiter.EnforceSignUp(ctx, email); err != nil {
		return nil, mapRateError(err)
	}

	hash, err := p.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return nil, ErrWeakPassword
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	acct := &accountRecord{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	raw, err := json.Marshal(acct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	created, err := p.redis.SetNX(ctx, p.accountKey(email), raw, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !created {
		return nil, ErrEmailInUse
	}

	return p.establish(acct)
}

// SignOut clears the current identity. Signing out with nobody signed in
// is a no-op and emits nothing.
func (p *RedisProvider) SignOut(ctx context.Context) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	p.current = nil
	p.notify.publish(nil)
	return nil
}

// OnChange registers fn for auth-state changes. fn first receives the
// current identity, or nil. The returned func unregisters fn; a pending
// delivery to fn is dropped.
func (p *RedisProvider) OnChange(fn Listener) func() {
	p.mu.Lock()
	id, ok := p.notify.subscribe(fn, p.current)
	p.mu.Unlock()

	if !ok {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() { p.notify.unsubscribe(id) })
	}
}

// Token returns the current credential, reissuing it when it expires within
// the refresh window. Reissuing does not emit a change.
func (p *RedisProvider) Token(ctx context.Context, uid string) (string, error) {
	if err := p.checkOpen(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return "", ErrNoCurrentIdentity
	}
	if p.current.UID != uid {
		return "", ErrIdentityChanged
	}
	if time.Until(p.current.ExpiresAt) > p.config.RefreshWindow {
		return p.current.Credential, nil
	}

	if err := p.reissueLocked(); err != nil {
		return "", err
	}
	return p.current.Credential, nil
}

// Refresh reissues the current credential and emits the refreshed identity.
func (p *RedisProvider) Refresh(ctx context.Context) (*Identity, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, ErrNoCurrentIdentity
	}
	if err := p.reissueLocked(); err != nil {
		return nil, err
	}
	p.notify.publish(p.current)
	return p.current.clone(), nil
}

// Current returns a copy of the current identity, or nil.
func (p *RedisProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.clone()
}

// Verifier returns the credential manager, for servers that check
// credentials the provider issued.
func (p *RedisProvider) Verifier() *jwt.Manager {
	return p.tokens
}

// Close stops change delivery. Further operations return ErrProviderClosed.
func (p *RedisProvider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.notify.close()
}

func (p *RedisProvider) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProviderClosed
	}
	return nil
}

func (p *RedisProvider) establish(acct *accountRecord) (*Identity, error) {
	cred, exp, err := p.tokens.CreateCredential(acct.UID, acct.Email, acct.EmailVerified)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	next := &Identity{
		UID:           acct.UID,
		Email:         acct.Email,
		EmailVerified: acct.EmailVerified,
		Credential:    cred,
		ExpiresAt:     exp,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProviderClosed
	}
	p.current = next
	p.notify.publish(next)
	return next.clone(), nil
}

func (p *RedisProvider) reissueLocked() error {
	cur := p.current
	cred, exp, err := p.tokens.CreateCredential(cur.UID, cur.Email, cur.EmailVerified)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	next := cur.clone()
	next.Credential = cred
	next.ExpiresAt = exp
	p.current = next
	return nil
}

func (p *RedisProvider) loadAccount(ctx context.Context, email string) (*accountRecord, error) {
	raw, err := p.redis.Get(ctx, p.accountKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var acct accountRecord
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("%w: corrupt account record: %v", ErrProviderUnavailable, err)
	}
	return &acct, nil
}

func (p *RedisProvider) upgradeHash(ctx context.Context, acct *accountRecord, pass string) {
	needs, err := p.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := p.hasher.Hash(pass)
	if err != nil {
		return
	}
	acct.PasswordHash = hash
	raw, err := json.Marshal(acct)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, p.accountKey(acct.Email), raw, 0).Err(); err != nil {
		log.Printf("learnauth: identity: password hash upgrade failed: %v", err)
	}
}

func (p *RedisProvider) recordFailure(ctx context.Context, email string) {
	if err := p.limiter.IncrementLogin(ctx, email); err != nil {
		log.Printf("learnauth: identity: record failed sign-in: %v", err)
	}
}

func (p *RedisProvider) accountKey(email string) string {
	return p.config.Prefix + "acct:" + email
}

func mapRateError(err error) error {
	switch {
	case errors.Is(err, rate.ErrRateLimited):
		return ErrRateLimited
	case errors.Is(err, rate.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return err
	}
}
