package middleware

import (
	"net/http" // HTTP status codes and methods

	"finance_tracker/internal/utils" // CSRF pair validation

	"github.com/gin-gonic/gin" // Gin web framework
)

// CSRF pair transport names
const (
	CSRFCookieName = "_csrf"        // HTTP-only secret half
	CSRFHeaderName = "X-CSRF-Token" // Public half echoed by the client
)

// CSRFGuard is the anti-forgery gate stage. It runs before session
// verification: a forged request riding a valid session must still be
// stopped here, so a valid session can never short-circuit this check.
// Pre: cookies parseable. Post: mutating requests carry a matching pair.
func CSRFGuard(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Safe methods carry no state change and pass through
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		publicToken := c.GetHeader(CSRFHeaderName) // Public half from the request header
		if publicToken == "" {
			publicToken = c.PostForm("_csrf") // Form field fallback for plain form posts
		}
		cookieValue, err := c.Cookie(CSRFCookieName) // Secret half from the cookie
		if err != nil || !utils.ValidateCSRF(secret, publicToken, cookieValue) {
			// Reject before any session logic or handler runs
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}
		c.Next() // Pair matches, proceed to session verification
	}
}
