package middleware

import (
	"github.com/gin-contrib/secure" // Security response headers
	"github.com/gin-gonic/gin"      // Gin web framework
)

// SecurityHeaders is the first gate stage. It attaches baseline
// transport-security headers to every response.
// Pre: none. Post: sniffing/framing protections present on the response.
func SecurityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		ContentTypeNosniff: true,          // X-Content-Type-Options: nosniff
		FrameDeny:          true,          // X-Frame-Options: DENY
		BrowserXssFilter:   true,          // X-XSS-Protection: 1; mode=block
		ReferrerPolicy:     "no-referrer", // Do not leak referrers
	})
}
