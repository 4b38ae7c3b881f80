package middleware

import (
	"github.com/gin-contrib/cors" // Cross-origin policy
	"github.com/gin-gonic/gin"    // Gin web framework
)

// CORS is the second gate stage. Credentialed cross-origin requests are
// allowed only from the configured frontend origin.
// Pre: headers applied. Post: disallowed origins never reach later stages.
func CORS(frontendOrigin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{frontendOrigin},                                    // Single allowed origin
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},         // Allowed methods
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", CSRFHeaderName}, // Client must be able to send the CSRF header
		AllowCredentials: true,                                                        // Cookies ride along
	})
}
