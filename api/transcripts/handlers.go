package transcripts

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/models"
)

// ListRegions returns the live regions of a transcript, or with ?since=N
// every change written after N, tombstones included
func ListRegions(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcriptID := c.Param("transcriptId")
		since, ok := types.ParseInt64Query(c, "since", -1)
		if !ok {
			return
		}

		if since >= 0 {
			items, err := deps.RegionService.ListSince(c.Request.Context(), transcriptID, since)
			if err != nil {
				types.SendServiceError(c, err)
				return
			}
			types.SendSuccess(c, types.ChangesResponse{
				BaseResponse: types.BaseResponse{Status: types.StatusOK},
				TranscriptID: transcriptID,
				Since:        since,
				Items:        items,
				Count:        len(items),
			})
			return
		}

		regions, err := deps.RegionService.ListByTranscript(c.Request.Context(), transcriptID)
		if err != nil {
			types.SendServiceError(c, err)
			return
		}
		types.SendSuccess(c, types.RegionsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			TranscriptID: transcriptID,
			Regions:      regions,
			Count:        len(regions),
		})
	}
}

// CreateRegion stores a new region in the transcript
func CreateRegion(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var region models.Region
		if !types.BindJSONOrError(c, &region) {
			return
		}
		region.TranscriptID = c.Param("transcriptId")

		created, err := deps.RegionService.Create(c.Request.Context(), region, types.UserID(c))
		if err != nil {
			types.SendServiceError(c, err)
			return
		}
		types.SendCreated(c, types.RegionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Region created"},
			Region:       created,
		})
	}
}
