package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildsync/config"
)

const PlayerIDKey = "player_id"

// Auth validates the Bearer JWT token and stores the acting player id on
// the request context. Tokens are stateless; expiry is enforced by the
// token itself, not a session store.
func Auth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(PlayerIDKey, claims.PlayerID)
		ctx.Next()
	}
}

// GetPlayerID retrieves the authenticated player id from the Gin context.
func GetPlayerID(c *gin.Context) string {
	if v, exists := c.Get(PlayerIDKey); exists {
		return v.(string)
	}
	return ""
}
