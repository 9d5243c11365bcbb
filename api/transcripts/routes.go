package transcripts

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
)

// RegisterRoutes registers transcript-scoped routes. requireUser guards writes.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, requireUser gin.HandlerFunc) {
	// GET /api/v1/transcripts/:transcriptId/regions - List regions or changes since N
	router.GET("/:transcriptId/regions", ListRegions(deps))

	// POST /api/v1/transcripts/:transcriptId/regions - Create a region
	router.POST("/:transcriptId/regions", requireUser, CreateRegion(deps))

	// GET /api/v1/transcripts/:transcriptId/stream - Server-sent snapshot events
	router.GET("/:transcriptId/stream", Stream(deps))
}
