package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL drops a client's limiter after it has been quiet this long.
	// Zero keeps limiters forever.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientTable holds one limiter per client IP.
type clientTable struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

func newClientTable(cfg RateLimitConfig) *clientTable {
	return &clientTable{
		cfg:     cfg,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (t *clientTable) limiter(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	cl, ok := t.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)}
		t.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep runs at most once per IdleTTL. Caller holds mu.
func (t *clientTable) sweep(now time.Time) {
	if t.cfg.IdleTTL <= 0 || now.Sub(t.lastSweep) < t.cfg.IdleTTL {
		return
	}
	t.lastSweep = now
	for ip, cl := range t.clients {
		if now.Sub(cl.lastSeen) >= t.cfg.IdleTTL {
			delete(t.clients, ip)
		}
	}
}

func (t *clientTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newClientTable(cfg))
}

func rateLimit(table *clientTable) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !table.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
