package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	// ClientExpiration drops buckets idle for longer than this.
	ClientExpiration time.Duration
	// MaxClients caps tracked clients; new clients beyond it are refused.
	MaxClients int
}

// DefaultRateLimitConfig returns a config for rps sustained with the given burst.
func DefaultRateLimitConfig(rps float64, burst int) *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: rps,
		BurstSize:         burst,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        100_000,
	}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter tracks one token bucket per client.
type RateLimiter struct {
	config  RateLimitConfig
	logger  logging.Logger
	now     func() time.Time
	mu      sync.RWMutex
	clients map[string]*tokenBucket
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a limiter and starts its cleanup loop. Call Stop to
// end the loop.
func NewRateLimiter(config *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig(100, 200)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rl := &RateLimiter{
		config:  *config,
		logger:  logger.With(logging.Component("ratelimit")),
		now:     time.Now,
		clients: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if rl.config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow takes a token from the client's bucket.
func (rl *RateLimiter) Allow(clientID string) bool {
	bucket := rl.bucket(clientID)
	if bucket == nil {
		return false
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := rl.now()
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * rl.config.RequestsPerSecond
	bucket.tokens = math.Min(bucket.tokens, float64(rl.config.BurstSize))
	bucket.lastRefill = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

func (rl *RateLimiter) bucket(clientID string) *tokenBucket {
	rl.mu.RLock()
	b, ok := rl.clients[clientID]
	rl.mu.RUnlock()
	if ok {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok = rl.clients[clientID]; ok {
		return b
	}
	if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
		rl.logger.Warn("rate limiter client table full", logging.Int("max_clients", rl.config.MaxClients))
		return nil
	}
	b = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: rl.now()}
	rl.clients[clientID] = b
	return b
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops buckets idle longer than ClientExpiration.
func (rl *RateLimiter) cleanup() int {
	cutoff := rl.now().Add(-rl.config.ClientExpiration)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for id, b := range rl.clients {
		b.mu.Lock()
		idle := b.lastRefill.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(rl.clients, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter cleanup", logging.Count(removed))
	}
	return removed
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.clients)
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// retryAfter is the whole number of seconds until one token refills.
func (rl *RateLimiter) retryAfter() int {
	if rl.config.RequestsPerSecond <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/rl.config.RequestsPerSecond)))
}

// ClientIDFunc extracts a client identifier from a request.
type ClientIDFunc func(*http.Request) string

// RateLimit answers 429 with Retry-After once a client runs out of tokens.
// A nil limiter disables the middleware.
func RateLimit(limiter *RateLimiter, clientID ClientIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)
			if limiter.Allow(id) {
				next.ServeHTTP(w, r)
				return
			}
			limiter.logger.Info("rate limited",
				logging.String("client", id),
				logging.Path(r.URL.Path),
				logging.RequestID(GetRequestID(r)),
			)
			w.Header().Set("Retry-After", strconv.Itoa(limiter.retryAfter()))
			WriteError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		})
	}
}
