package middleware

import (
	"net/http" // HTTP status codes

	"finance_tracker/internal/utils" // Session token codec

	"github.com/gin-gonic/gin" // Gin web framework
)

// SessionCookieName carries the signed session token, HTTP-only
const SessionCookieName = "token"

// contextUserIDKey is the gin context key holding the verified identity
const contextUserIDKey = "userID"

// SessionAuth is the session-verification gate stage. On success the
// decoded identity is attached to the request context; downstream handlers
// read it through CurrentUserID and never from client input.
// Pre: CSRF gate passed. Post: identity in context, or request rejected.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(SessionCookieName) // Session token from the cookie
		if err != nil || tokenStr == "" {
			// No token means no session
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		claims, err := utils.VerifySessionToken(tokenStr, secret) // Verify signature and expiry
		if err != nil {
			// Invalid and expired collapse to one client-visible answer
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}
		c.Set(contextUserIDKey, claims.UserID) // Attach the trusted identity
		c.Next()                               // Proceed to the resource handler
	}
}

// CurrentUserID returns the verified identity placed by SessionAuth
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false // Handler reached without the session gate
	}
	id, ok := v.(uint)
	return id, ok
}
