package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/identity"
	"github.com/communitylearn/learnauth/jwt"
	"github.com/communitylearn/learnauth/middleware"
	"github.com/communitylearn/learnauth/password"
	"github.com/communitylearn/learnauth/profile"
	"github.com/communitylearn/learnauth/sidechannel"
)

const loadtestPassword = "loadtest-pass"

type account struct {
	email      string
	role       profile.Role
	credential string
}

type env struct {
	client   redis.UniversalClient
	tokens   *jwt.Manager
	profiles *profile.RedisStore
	identity identity.Config
	metrics  *learnauth.Metrics
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login + gate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt:", "redis key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("learnauth-loadtest-secret"),
		Issuer:        "learnauth-loadtest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "credential manager: %v\n", err)
		os.Exit(1)
	}

	identityCfg := identity.DefaultConfig()
	identityCfg.Prefix = *prefix
	// cheap hashes; the phases measure the resolver, not argon2
	identityCfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	identityCfg.MaxLoginAttempts = 0

	e := &env{
		client:   client,
		tokens:   tokens,
		profiles: profile.NewRedisStore(client, *prefix),
		identity: identityCfg,
		metrics:  learnauth.NewMetrics(learnauth.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}),
	}

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	seeded, err := seed(ctx, e, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runLoginPhase(ctx, e, seeded, *ops, *concurrency)
	gateStats := runGatePhase(e, seeded, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("gate", gateStats)

	snap := e.metrics.Snapshot()
	fmt.Printf("resolver: authenticated=%d profile_missing=%d failures=%d stale_discarded=%d\n",
		snap.Counters[learnauth.MetricResolveAuthenticated],
		snap.Counters[learnauth.MetricResolveProfileMissing],
		snap.Counters[learnauth.MetricResolveFailure],
		snap.Counters[learnauth.MetricResolveStaleDiscarded],
	)
}

func seed(ctx context.Context, e *env, n int) ([]account, error) {
	provider, err := identity.NewRedisProvider(e.client, e.tokens, e.identity)
	if err != nil {
		return nil, err
	}
	defer provider.Close()

	roles := profile.Roles()
	out := make([]account, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		id, err := provider.SignUp(ctx, email, loadtestPassword)
		if err != nil {
			return nil, fmt.Errorf("sign up %s: %w", email, err)
		}
		role := roles[i%len(roles)]
		if err := e.profiles.Put(ctx, profile.Profile{ID: id.UID, Name: email, Email: id.Email, Role: role}); err != nil {
			return nil, fmt.Errorf("profile %s: %w", email, err)
		}
		out[i] = account{email: email, role: role, credential: id.Credential}
	}
	return out, nil
}

// loginOnce runs one full sign-in the way the server does: a fresh provider
// and resolver, then a wait until the view settles on the account.
func loginOnce(ctx context.Context, e *env, acct account) error {
	provider, err := identity.NewRedisProvider(e.client, e.tokens, e.identity)
	if err != nil {
		return err
	}
	defer provider.Close()

	r, err := learnauth.New().
		WithProvider(provider).
		WithProfileStore(e.profiles).
		WithProjection(sidechannel.NewMemoryProjection()).
		WithMetrics(e.metrics).
		Build()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Subscribe(); err != nil {
		return err
	}
	views, cancel := r.Watch()
	defer cancel()

	if err := r.Login(ctx, acct.email, loadtestPassword); err != nil {
		return err
	}

	timeout := time.NewTimer(5 * time.Second)
	defer timeout.Stop()
	for {
		select {
		case v := <-views:
			if v.Authenticated() && v.User.Email == acct.email {
				return nil
			}
		case <-timeout.C:
			return errors.New("login did not settle")
		}
	}
}

func runLoginPhase(ctx context.Context, e *env, accounts []account, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acct := accounts[r.Intn(len(accounts))]
				t0 := time.Now()
				err := loginOnce(ctx, e, acct)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runGatePhase(e *env, accounts []account, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := middleware.Gate(e.tokens, middleware.GateConfig{})(ok)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acct := accounts[r.Intn(len(accounts))]
				req := httptest.NewRequest(http.MethodGet, "/dashboard/"+acct.role.String(), nil)
				req.AddCookie(&http.Cookie{Name: sidechannel.SessionCookie, Value: acct.credential})
				req.AddCookie(&http.Cookie{Name: sidechannel.RoleCookie, Value: acct.role.String()})
				rec := httptest.NewRecorder()

				t0 := time.Now()
				gate.ServeHTTP(rec, req)
				d := time.Since(t0)
				if rec.Code != http.StatusNoContent {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
