package status

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
)

// Get reports whether the persistence service is applying a write
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, types.StatusResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Busy:         deps.RegionService.IsBusy(),
		})
	}
}
