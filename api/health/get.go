package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
)

const pingTimeout = time.Second

// Get reports whether the store and the snapshot broker are reachable.
// Either one failing makes the server unhealthy.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil {
			deps = &types.Dependencies{}
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		database := databaseStatus(ctx, deps)
		broker := brokerStatus(ctx, deps)

		response := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  database,
			"broker":    broker,
		}
		code := http.StatusOK
		if database["status"] == "unhealthy" || broker["status"] == "unhealthy" {
			response["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, response)
	}
}

func databaseStatus(ctx context.Context, deps *types.Dependencies) gin.H {
	if deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}
	if err := deps.DB.Ping(ctx); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}
	return gin.H{"status": "healthy"}
}

func brokerStatus(ctx context.Context, deps *types.Dependencies) gin.H {
	if deps.Broker == nil {
		return gin.H{"status": "not configured"}
	}
	if err := deps.Broker.Ping(ctx); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}
	return gin.H{"status": "healthy"}
}
