package api

import (
	"net/http" // HTTP status codes

	"finance_tracker/internal/config"     // Application configuration
	"finance_tracker/internal/middleware" // Cookie names
	"finance_tracker/internal/utils"      // CSRF pair minting

	"github.com/gin-gonic/gin" // Gin web framework
)

// CSRFTokenHandler mints a fresh CSRF pair: the secret half goes into an
// HTTP-only SameSite=Strict cookie, the public half into the JSON body for
// the client to echo on mutating requests.
func CSRFTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		publicToken, cookieValue, err := utils.MintCSRF(cfg.CSRFSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create CSRF token"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		// Secret half is unreadable by scripts; only the server can pair it
		c.SetCookie(middleware.CSRFCookieName, cookieValue, 0, "/", "", cfg.IsProd, true)
		c.JSON(http.StatusOK, gin.H{"csrfToken": publicToken})
	}
}
