package auth

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers identity routes
func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	// GET /api/v1/me - Current writer identity
	router.GET("/me", h.Me)
}
