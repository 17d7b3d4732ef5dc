package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"grid_supervisor/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const userIDKey = "userId"

func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	// gin context for handlers, request context for the command audit trail
	c.Set(userIDKey, userId)
	c.Request = c.Request.WithContext(service.WithOperator(c.Request.Context(), userId))
	c.Next()
}

// RateLimit is a per-client token bucket. RPS <= 0 disables limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

const visitorIdleTTL = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client and forgets idle clients.
type rateLimiter struct {
	cfg RateLimit
	now func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newRateLimiter(cfg RateLimit) *rateLimiter {
	if cfg.RPS <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &rateLimiter{cfg: cfg, now: time.Now, visitors: make(map[string]*visitor)}
}

func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > visitorIdleTTL {
		for id, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(l.visitors, id)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimitMiddleware throttles grid commands. Authenticated operators are
// keyed by id, everyone else by client IP.
func (h *Handler) rateLimitMiddleware(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}
	key := c.ClientIP()
	if uid, ok := c.Get(userIDKey); ok {
		key = fmt.Sprintf("op:%v", uid)
	}
	if !h.limiter.allow(key) {
		if h.log != nil {
			h.log.Warnw("rate_limited", "client", key, "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many commands, slow down"})
		return
	}
	c.Next()
}
