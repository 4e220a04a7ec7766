package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

// newRateLimitRouter stands in for the Auth middleware by taking the player
// id from a test header, then applies the limiter like the real chain does.
func newRateLimitRouter(r rate.Limit, b int) *gin.Engine {
	eng := gin.New()
	eng.Use(func(c *gin.Context) {
		if pid := c.GetHeader("X-Test-Player"); pid != "" {
			c.Set(PlayerIDKey, pid)
		}
	})
	eng.Use(RateLimit(r, b))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func doLimited(r *gin.Engine, player, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if player != "" {
		req.Header.Set("X-Test-Player", player)
	}
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsFirst(t *testing.T) {
	r := newRateLimitRouter(100, 5)
	assert.Equal(t, http.StatusOK, doLimited(r, "alice", ""))
}

func TestRateLimit_Burst(t *testing.T) {
	// Burst of 3, then reject
	r := newRateLimitRouter(0.001, 3) // near-zero refill so we exhaust quickly
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLimited(r, "alice", ""), "request %d should be allowed", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, doLimited(r, "alice", ""))
}

func TestRateLimit_PerPlayer(t *testing.T) {
	// Two players with burst=1 each get their own bucket
	r := newRateLimitRouter(0.001, 1)

	assert.Equal(t, http.StatusOK, doLimited(r, "alice", ""))
	assert.Equal(t, http.StatusOK, doLimited(r, "bob", ""))
	assert.Equal(t, http.StatusTooManyRequests, doLimited(r, "alice", ""))
}

func TestRateLimit_PlayerBucketFollowsAcrossAddresses(t *testing.T) {
	// The same player behind two addresses shares one bucket
	r := newRateLimitRouter(0.001, 1)

	assert.Equal(t, http.StatusOK, doLimited(r, "alice", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doLimited(r, "alice", "10.0.0.2"))
}

func TestRateLimit_IPFallback(t *testing.T) {
	// Unauthenticated requests are keyed by client IP
	r := newRateLimitRouter(0.001, 1)

	assert.Equal(t, http.StatusOK, doLimited(r, "", "10.1.1.1"))
	assert.Equal(t, http.StatusOK, doLimited(r, "", "10.1.1.2"))
	assert.Equal(t, http.StatusTooManyRequests, doLimited(r, "", "10.1.1.1"))
}
