package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawsync/pawsync/pkg/logger"
)

// RateLimiter limits request rates per authenticated user, falling back to
// the remote address for anonymous calls.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
		stop:     make(chan struct{}),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			rl.log.WithFields(map[string]interface{}{
				"key":  key,
				"path": r.URL.Path,
			}).Warn("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxTrackedKeys bounds the limiter map; above it the cleanup pass discards
// every tracked key rather than aging them individually.
const maxTrackedKeys = 10000

// StartCleanup periodically discards the limiter map once it grows large.
// The goroutine runs until StopCleanup is called.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.mu.Lock()
				if len(rl.limiters) > maxTrackedKeys {
					rl.limiters = make(map[string]*rate.Limiter)
				}
				rl.mu.Unlock()
			case <-rl.stop:
				return
			}
		}
	}()
}

// StopCleanup ends the cleanup goroutine. Safe to call repeatedly.
func (rl *RateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
