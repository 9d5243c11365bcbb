package transcripts

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/models"
)

// HeartbeatInterval is how often an idle stream sends a ping event
var HeartbeatInterval = 15 * time.Second

// Stream pushes snapshot events of a transcript as server-sent events. With
// ?since=N the changes after N are sent first as one snapshot.
func Stream(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcriptID := c.Param("transcriptId")
		since, ok := types.ParseInt64Query(c, "since", -1)
		if !ok {
			return
		}
		if deps.Broker == nil {
			c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Streaming is not configured",
			})
			return
		}

		ctx := c.Request.Context()

		// subscribe before reading the backlog so nothing falls in between
		events, err := deps.Broker.Subscribe(ctx, transcriptID)
		if err != nil {
			log.Printf("Stream: subscribe to transcript %s failed: %v", transcriptID, err)
			c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Snapshot stream unavailable",
			})
			return
		}

		var backlog []models.RemoteRegion
		if since >= 0 {
			backlog, err = deps.RegionService.ListSince(ctx, transcriptID, since)
			if err != nil {
				types.SendServiceError(c, err)
				return
			}
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		if len(backlog) > 0 {
			c.SSEvent("snapshot", models.SnapshotEvent{TranscriptID: transcriptID, Items: backlog})
		} else {
			c.SSEvent("ready", transcriptID)
		}
		c.Writer.Flush()

		heartbeat := time.NewTicker(HeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-deps.StreamsDone:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				c.SSEvent("snapshot", event)
				c.Writer.Flush()
			case <-heartbeat.C:
				c.SSEvent("ping", time.Now().UnixMilli())
				c.Writer.Flush()
			}
		}
	}
}
