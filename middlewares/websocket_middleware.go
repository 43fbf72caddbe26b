package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/utils"
)

// WebSocketAuthMiddleware reads the session token from the query string, since
// browsers cannot set headers on a websocket upgrade.
func WebSocketAuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		// Validasi token
		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}
