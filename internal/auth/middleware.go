package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// Middleware rejects requests without a verifiable identity and stores the
// user id in the gin context.
func Middleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.UserFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// MustUserID returns the id stored by Middleware. It panics when the route
// is not behind Middleware.
func MustUserID(c *gin.Context) int64 {
	return c.MustGet(userIDKey).(int64)
}
