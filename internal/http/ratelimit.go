package httpx

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window.
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// LoginLimit is the default for credential submission: 5 per minute per client and username.
var LoginLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

// KeyExtractor groups requests for rate limiting.
type KeyExtractor func(*http.Request) string

// ClientIPKey uses the remote address; the console is served directly, so forwarding headers are ignored.
func ClientIPKey(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientAndUsernameKey limits per client and submitted username.
func ClientAndUsernameKey(r *http.Request) string {
	user := ""
	if err := r.ParseForm(); err == nil {
		user = strings.ToLower(strings.TrimSpace(r.PostFormValue("username")))
	}
	return ClientIPKey(r) + ":" + user
}

const limiterIdleSweep = 5 * time.Minute

type rateLimiter struct {
	rate  rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now := time.Now(); now.Sub(rl.lastSweep) >= limiterIdleSweep {
		rl.lastSweep = now
		// A full bucket has been idle long enough to forget.
		for k, l := range rl.limiters {
			if l.Tokens() >= float64(rl.burst) {
				delete(rl.limiters, k)
			}
		}
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// RateLimit rejects requests beyond cfg with 429 and a Retry-After hint.
func RateLimit(cfg RateLimitConfig, key KeyExtractor, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerWindow
	}
	rl := &rateLimiter{
		rate:      rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.get(key(r))
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := limiter.Reserve()
			retryAfter := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			logger.WarnContext(r.Context(), "rate limit exceeded",
				"req_id", RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteError(w, ErrorParams{
				Code:    http.StatusTooManyRequests,
				ErrCode: "rate_limit_exceeded",
				Message: "Demasiados intentos. Intente de nuevo más tarde.",
			})
		})
	}
}
