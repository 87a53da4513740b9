package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userId"

	// UserIDHeader carries the optional caller identity.
	UserIDHeader = "X-User-Id"

	maxUserIDLength = 128
)

// Identity stores the optional X-User-Id header in context. Requests without
// it are anonymous and see unscoped data.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if runes := []rune(userID); len(runes) > maxUserIDLength {
			userID = string(runes[:maxUserIDLength])
		}
		if userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
