package status

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
)

// RegisterRoutes registers the write status route
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// GET /api/v1/status - Busy signal of the single writer
	router.GET("/status", Get(deps))
}
