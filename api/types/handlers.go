package types

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
)

// Context keys set by the identity middleware
const (
	ContextUserID      = "user_id"
	ContextDisplayName = "display_name"
)

// ParseInt64Query reads an optional int64 query parameter. A missing value
// returns def. Sends an error response if parsing fails.
func ParseInt64Query(c *gin.Context, name string, def int64) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		SendBadRequest(c, "Invalid "+name)
		return 0, false
	}
	return value, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Error:   string(apperrors.ErrCodeInvalidInput),
			Details: err.Error(),
		})
		return false
	}
	return true
}

// UserID returns the writer identity stored by the identity middleware
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeInvalidInput),
	})
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeNotFound),
	})
}

// SendUnauthorized sends a standardized unauthorized response
func SendUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeUnauthorized),
	})
}

// SendForbidden sends a standardized forbidden response
func SendForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeForbidden),
	})
}

// SendServiceError maps a region service error to a response
func SendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, regions.ErrRegionNotFound):
		SendNotFound(c, "Region not found")
	case errors.Is(err, regions.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: err.Error(),
			Error:   string(apperrors.ErrCodeValidation),
		})
	case errors.Is(err, regions.ErrRegionExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Status:  StatusError,
			Message: "Region already exists",
			Error:   string(apperrors.ErrCodeConflict),
		})
	default:
		log.Printf("API: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  StatusError,
			Message: "Internal server error",
			Error:   string(apperrors.ErrCodeInternal),
		})
	}
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}
