package regions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/models"
)

// GetRegion returns one live region
func GetRegion(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		region, err := deps.RegionService.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendServiceError(c, err)
			return
		}
		types.SendSuccess(c, types.RegionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Region:       region,
		})
	}
}

// PatchRegion applies a field patch under the caller's identity
func PatchRegion(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.RegionPatch
		if !types.BindJSONOrError(c, &patch) {
			return
		}
		if patch.IsEmpty() {
			types.SendBadRequest(c, "Patch sets no fields")
			return
		}

		region, err := deps.RegionService.Write(c.Request.Context(), c.Param("id"), patch, types.UserID(c))
		if err != nil {
			types.SendServiceError(c, err)
			return
		}
		types.SendSuccess(c, types.RegionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Region updated"},
			Region:       region,
		})
	}
}

// DeleteRegion tombstones a region
func DeleteRegion(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.RegionService.Delete(c.Request.Context(), c.Param("id"), types.UserID(c)); err != nil {
			types.SendServiceError(c, err)
			return
		}
		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: "Region deleted"})
	}
}
