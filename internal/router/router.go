package router

import (
	"finance_tracker/internal/api"        // Request handlers
	"finance_tracker/internal/config"     // Application configuration
	"finance_tracker/internal/middleware" // Gate stages

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Setup assembles the engine with the request-gating pipeline and routes.
//
// The stage order is load-bearing:
//  1. Security headers — attached to every response, including rejections.
//  2. CORS — credentialed requests allowed only from the frontend origin.
//  3. Public auth routes and the CSRF mint endpoint — reachable without a
//     session or CSRF pair, since a brand-new client has neither yet.
//  4. CSRF gate — before session verification: it defends against forged
//     requests riding a valid session, so a valid session must never
//     short-circuit it.
//  5. Session gate — verifies the signed cookie and attaches the identity.
//  6. Resource routes — may assume both defenses already passed.
//
// Any failing stage rejects and short-circuits all later stages.
func Setup(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode) // Release mode in production
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Stages 1 and 2 gate every request
	gates := []gin.HandlerFunc{
		middleware.SecurityHeaders(),    // Stage 1: transport-security headers
		middleware.CORS(cfg.FrontendOrigin), // Stage 2: origin allow-list
	}
	r.Use(gates...)

	// Stage 3: public routes, no session or CSRF pair required
	auth := r.Group("/api/auth")
	auth.POST("/register", api.RegisterHandler(db)) // Registration endpoint
	auth.POST("/login", api.LoginHandler(db, cfg))  // Login endpoint, sets the session cookie
	r.GET("/api/csrf-token", api.CSRFTokenHandler(cfg)) // CSRF pair mint endpoint

	// Stages 4 and 5 gate everything below
	protected := r.Group("/api")
	protected.Use(
		middleware.CSRFGuard(cfg.CSRFSecret), // Stage 4: anti-forgery pair check
		middleware.SessionAuth(cfg.JWTSecret), // Stage 5: session verification
	)

	// Stage 6: resource routes, identity-scoped where the data is per-user
	protected.POST("/auth/logout", api.LogoutHandler(cfg)) // Clears the session cookie

	protected.POST("/transactions", api.CreateTransactionHandler(db, rdb, cfg.UploadDir)) // Create endpoint
	protected.GET("/transactions", api.ListTransactionsHandler(db, rdb))                  // List endpoint
	protected.PUT("/transactions/:id", api.UpdateTransactionHandler(db, rdb))             // Update endpoint
	protected.DELETE("/transactions/:id", api.DeleteTransactionHandler(db, rdb))          // Delete endpoint

	protected.POST("/categories", api.CreateCategoryHandler(db, rdb))       // Create endpoint
	protected.GET("/categories", api.ListCategoriesHandler(db, rdb))        // List endpoint
	protected.PUT("/categories/:id", api.UpdateCategoryHandler(db, rdb))    // Update endpoint
	protected.DELETE("/categories/:id", api.DeleteCategoryHandler(db, rdb)) // Delete endpoint

	// Stored receipts are served without an ownership check; known
	// hardening candidate pending product sign-off
	r.Static("/uploads", cfg.UploadDir)

	return r
}
