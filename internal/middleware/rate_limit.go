package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the per-minute budget applied when no tunable is
	// configured.
	DefaultRateLimit = 100
	// DefaultBurstSize caps how many requests a quiet caller may fire at once.
	DefaultBurstSize = 10
	// CleanupInterval is how often idle per-caller limiters are swept.
	CleanupInterval = 5 * time.Minute
	// LimiterTTL is how long a caller's limiter survives without traffic.
	LimiterTTL = 10 * time.Minute
)

// RateLimiter keeps one token bucket per authenticated caller. Buckets are
// created lazily on first request and swept once idle past LimiterTTL so
// the map doesn't grow with every API token that ever called.
type RateLimiter struct {
	buckets   map[uuid.UUID]*callerBucket
	mu        sync.RWMutex
	perMinute int
	perSecond float64
	burstSize int
	stopCh    chan struct{}
}

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter with the default general-tier budget.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a RateLimiter with an explicit per-minute
// budget and burst size, for wiring the auth/social/general tunables.
func NewRateLimiterWithConfig(requestsPerMinute int, burstSize int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRateLimit
	}
	if burstSize <= 0 {
		burstSize = DefaultBurstSize
	}
	rl := &RateLimiter{
		buckets:   make(map[uuid.UUID]*callerBucket),
		perMinute: requestsPerMinute,
		perSecond: float64(requestsPerMinute) / 60.0,
		burstSize: burstSize,
		stopCh:    make(chan struct{}),
	}

	go rl.sweepIdle()

	return rl
}

// Allow reports whether one more request from the caller fits its budget.
func (r *RateLimiter) Allow(callerID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[callerID]
	if !ok {
		b = &callerBucket{
			limiter:  rate.NewLimiter(rate.Limit(r.perSecond), r.burstSize),
			lastSeen: time.Now(),
		}
		r.buckets[callerID] = b
	} else {
		b.lastSeen = time.Now()
	}

	return b.limiter.Allow()
}

// State returns the remaining budget and an estimated replenish time for
// the X-RateLimit response headers. Both are approximations; the limiter
// itself remains the authority on admission.
func (r *RateLimiter) State(callerID uuid.UUID) (remaining int, resetTime time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[callerID]
	if !ok {
		return r.burstSize, time.Now().Add(time.Minute)
	}

	tokens := int(b.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}

	refill := time.Duration(float64(r.burstSize-tokens)/r.perSecond) * time.Second
	return tokens, time.Now().Add(refill)
}

func (r *RateLimiter) sweepIdle() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			now := time.Now()
			for callerID, b := range r.buckets {
				if now.Sub(b.lastSeen) > LimiterTTL {
					delete(r.buckets, callerID)
					log.Debug().Str("caller_id", callerID.String()).Msg("dropped idle rate limiter")
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the idle-bucket sweeper.
func (r *RateLimiter) Stop() {
	close(r.stopCh)
}

// RateLimitMiddleware enforces rl against API-token-authenticated callers.
// JWT-authenticated browser sessions pass through: their budget is the
// upstream identity provider's concern, while API tokens are minted and
// enforced here.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAPITokenAuth(c) {
				return next(c)
			}

			callerID := GetAPITokenID(c)
			if callerID == uuid.Nil {
				return next(c)
			}

			if !rl.Allow(callerID) {
				_, resetTime := rl.State(callerID)
				retryAfter := int(time.Until(resetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				setRateHeaders(c, rl.perMinute, 0, resetTime)
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

				log.Warn().
					Str("caller_id", callerID.String()).
					Int("retry_after", retryAfter).
					Msg("rate limit exceeded")

				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"error": map[string]interface{}{
						"code":    "RATE_LIMITED",
						"message": fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter),
					},
				})
			}

			remaining, resetTime := rl.State(callerID)
			setRateHeaders(c, rl.perMinute, remaining, resetTime)

			return next(c)
		}
	}
}

func setRateHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
}
