package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Get handles version requests
func Get(version string) gin.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Transcript Sync API",
			"version":     version,
			"description": "Single-writer persistence for collaboratively edited transcript regions",
			"status":      "running",
		})
	}
}
