package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	cloudhatch "github.com/IulianH/CloudHatch-sub000"
	"github.com/IulianH/CloudHatch-sub000/password"
)

type chainState struct {
	token string
	mu    sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "ch:rt", "refresh token key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
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

	engine, states, err := buildEngine(ctx, client, *prefix, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	// one access token is enough for the validate phase; it is stateless
	pair, err := engine.Login(ctx, "user-0", seedPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warmup login failed: %v\n", err)
		os.Exit(1)
	}

	validateStats := runValidatePhase(engine, pair.AccessToken, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine counters: refresh_ok=%d refresh_fail=%d validate_ok=%d\n",
		snap.Counters[cloudhatch.MetricRefreshSuccess],
		snap.Counters[cloudhatch.MetricRefreshFailure],
		snap.Counters[cloudhatch.MetricValidateSuccess],
	)
}

const seedPassword = "loadtest-password-1"

func buildEngine(ctx context.Context, client redis.UniversalClient, prefix string, users int) (*cloudhatch.Engine, []chainState, error) {
	hasher, err := password.NewHasher(password.Config{Iterations: 10_000, SaltLength: 16, KeyLength: 32})
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, nil, err
	}

	up := cloudhatch.NewMemoryUserProvider()
	fmt.Printf("seeding %d accounts...\n", users)
	for i := 0; i < users; i++ {
		up.AddUser(cloudhatch.User{
			ID:             fmt.Sprintf("u%d", i),
			Username:       fmt.Sprintf("user-%d", i),
			PasswordHash:   hash,
			Issuer:         cloudhatch.IssuerLocal,
			Roles:          []string{"user"},
			EmailConfirmed: true,
		})
	}

	engine, err := cloudhatch.New().
		WithConfig(defaultLoadConfig()).
		WithUserProvider(up).
		WithRedis(client, prefix).
		Build()
	if err != nil {
		return nil, nil, err
	}

	states := make([]chainState, users)
	startSeed := time.Now()
	for i := range states {
		pair, err := engine.Login(ctx, fmt.Sprintf("user-%d", i), seedPassword)
		if err != nil {
			engine.Close()
			return nil, nil, fmt.Errorf("seed login %d: %w", i, err)
		}
		states[i].token = pair.RefreshToken
	}
	fmt.Printf("seeded %d chains in %s\n", users, time.Since(startSeed).Round(time.Millisecond))

	return engine, states, nil
}

func defaultLoadConfig() cloudhatch.Config {
	cfg := cloudhatch.Config{}
	cfg.JWT.SigningKey = bytes.Repeat([]byte("k"), 32)
	cfg.JWT.Issuer = "cloudhatch-loadtest"
	cfg.JWT.Audience = "cloudhatch-loadtest"
	cfg.JWT.AccessTTL = time.Hour
	cfg.Refresh.TTL = 24 * time.Hour
	cfg.Password.Iterations = 10_000
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32
	cfg.Lockout.SoftThreshold = 5
	cfg.Lockout.HardThreshold = 10
	cfg.Lockout.LockDuration = 15 * time.Minute
	cfg.Metrics.Enabled = true
	return cfg
}

func runValidatePhase(engine *cloudhatch.Engine, accessToken string, ops, concurrency int) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := engine.ValidateAccess(accessToken)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *cloudhatch.Engine, states []chainState, ops, concurrency int) phaseStats {
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
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				pair, err := engine.Refresh(ctx, state.token)
				d := time.Since(t0)
				if err == nil {
					state.token = pair.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

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
