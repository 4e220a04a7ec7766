package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimit applies a token bucket per caller. Requests carrying an
// authenticated player id are keyed by it, so every player gets their own
// budget even when many share one game-server address; requests without an
// identity fall back to the client IP. Run it after Auth.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	limiters := &sync.Map{}

	// Cleanup goroutine: evict buckets idle for more than 10 minutes.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
			limiters.Range(func(k, v interface{}) bool {
				if v.(*callerLimiter).lastSeen.Load() < cutoff {
					limiters.Delete(k)
				}
				return true
			})
		}
	}()

	getLimiter := func(key string) *rate.Limiter {
		v, _ := limiters.LoadOrStore(key, &callerLimiter{limiter: rate.NewLimiter(r, b)})
		cl := v.(*callerLimiter)
		cl.lastSeen.Store(time.Now().UnixNano())
		return cl.limiter
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if pid := GetPlayerID(c); pid != "" {
			key = "player:" + pid
		}
		if !getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
