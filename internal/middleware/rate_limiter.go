package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rmitchellscott/kindling/internal/logging"
)

// ClientRateLimiter enforces a token-bucket rate per client IP.
type ClientRateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	clients map[string]*clientLimit
	mutex   sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows perSecond requests per client with the given
// burst. Idle client entries are dropped after idleTTL.
func NewClientRateLimiter(perSecond float64, burst int, idleTTL time.Duration) *ClientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	rl := &ClientRateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
		clients: make(map[string]*clientLimit),
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow reports whether a request from key may proceed now.
func (rl *ClientRateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimit{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// RateLimit rejects requests over the limit. onLimited writes the
// rejection; when nil a bare 429 is sent.
func (rl *ClientRateLimiter) RateLimit(onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		logging.WarnWithComponent(logging.ComponentLimiter, "Rate limit exceeded",
			"ip", c.ClientIP(), "path", c.Request.URL.Path, "request_id", GetRequestID(c))
		c.Header("Retry-After", "1")
		if onLimited != nil {
			onLimited(c)
		} else {
			c.Status(http.StatusTooManyRequests)
		}
		c.Abort()
	}
}

// Clients returns the number of tracked clients.
func (rl *ClientRateLimiter) Clients() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine.
func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *ClientRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.idleTTL)
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

// cleanup removes clients idle for longer than idleTTL.
func (rl *ClientRateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) >= rl.idleTTL {
			delete(rl.clients, key)
		}
	}
}
