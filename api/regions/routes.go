package regions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
)

// RegisterRoutes registers single-region routes. requireUser guards writes.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, requireUser gin.HandlerFunc) {
	// GET /api/v1/regions/:id - Fetch one region
	router.GET("/:id", GetRegion(deps))

	// PATCH /api/v1/regions/:id - Write a field patch
	router.PATCH("/:id", requireUser, PatchRegion(deps))

	// DELETE /api/v1/regions/:id - Tombstone a region
	router.DELETE("/:id", requireUser, DeleteRegion(deps))
}
