package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nciso/server/internal/observability"
)

// WindowStore counts requests per key in a sliding window.
type WindowStore interface {
	// Take records one request for key and reports whether it fits in the window.
	Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Name() string
}

// RateLimiter implements per-user sliding window rate limiting.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	store       WindowStore
}

// NewRateLimiter creates a rate limiter with the given requests-per-second limit.
// A nil store keeps state in memory, so each instance enforces independently.
func NewRateLimiter(maxPerSecond int, store WindowStore) *RateLimiter {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	return &RateLimiter{
		maxRequests: maxPerSecond,
		window:      time.Second,
		store:       store,
	}
}

// Allow checks if a request from the given user is allowed. Store failures
// let the request through.
func (rl *RateLimiter) Allow(ctx context.Context, userID string) bool {
	if rl.maxRequests <= 0 {
		return true
	}
	ok, err := rl.store.Take(ctx, userID, rl.maxRequests, rl.window)
	if err != nil {
		observability.L().Warn("rate limit store unavailable", zap.Error(err))
		return true
	}
	return ok
}

// Middleware returns an HTTP middleware that applies rate limiting.
// Must be placed AFTER Authorize middleware (reads userID from context).
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		if authCtx == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.Allow(r.Context(), authCtx.UserID) {
			observability.CountRateLimitHit(rl.store.Name())
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "Muitas requisições. Reduza o ritmo ou use o modo batch.",
				"code":    "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// MemoryWindowStore keeps request timestamps in process memory.
type MemoryWindowStore struct {
	mu    sync.Mutex
	users map[string]*userWindow
	now   func() time.Time
}

type userWindow struct {
	timestamps []time.Time
	lastAccess time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{users: make(map[string]*userWindow), now: time.Now}
}

func (s *MemoryWindowStore) Name() string { return "memory" }

func (s *MemoryWindowStore) Take(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	uw, ok := s.users[key]
	if !ok {
		uw = &userWindow{}
		s.users[key] = uw
	}

	// Remove timestamps outside the window
	cutoff := now.Add(-window)
	start := 0
	for start < len(uw.timestamps) && !uw.timestamps[start].After(cutoff) {
		start++
	}
	uw.timestamps = uw.timestamps[start:]
	uw.lastAccess = now

	if len(uw.timestamps) >= limit {
		return false, nil
	}
	uw.timestamps = append(uw.timestamps, now)
	return true, nil
}

// Sweep drops keys idle for longer than idle.
func (s *MemoryWindowStore) Sweep(idle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	for key, uw := range s.users {
		if uw.lastAccess.Before(cutoff) {
			delete(s.users, key)
		}
	}
}

// RunSweeper calls Sweep every minute until ctx is done.
func (s *MemoryWindowStore) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(5 * time.Minute)
		}
	}
}

// slidingWindow trims, counts and conditionally records in one round trip.
// KEYS[1] window key; ARGV: now ms, window ms, limit, member.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisWindowStore shares rate limit windows across instances.
type RedisWindowStore struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisWindowStore(client redis.Scripter) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: "nciso:ratelimit:", now: time.Now}
}

func (s *RedisWindowStore) Name() string { return "redis" }

func (s *RedisWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, s.client,
		[]string{s.prefix + key},
		now, window.Milliseconds(), limit, strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
