package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/transcript-sync/api/auth"
	"github.com/killallgit/transcript-sync/api/health"
	"github.com/killallgit/transcript-sync/api/regions"
	"github.com/killallgit/transcript-sync/api/status"
	"github.com/killallgit/transcript-sync/api/transcripts"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/api/version"
	"github.com/killallgit/transcript-sync/pkg/config"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil || deps.RegionService == nil {
		return fmt.Errorf("region service is required")
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// API v1 routes
	v1 := engine.Group("/api/v1")

	authHandler := auth.NewHandler(deps.Tokens)
	v1.Use(authHandler.Identify())

	if cfg.RateLimit.Enabled && cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = cfg.RateLimit.RPS
		}
		v1.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, cfg.RateLimit.RPS, burst))
	}

	auth.RegisterRoutes(v1, authHandler)
	status.RegisterRoutes(v1, deps)
	transcripts.RegisterRoutes(v1.Group("/transcripts"), deps, authHandler.RequireUser())
	regions.RegisterRoutes(v1.Group("/regions"), deps, authHandler.RequireUser())

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
