package types

import (
	"github.com/killallgit/transcript-sync/internal/models"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`            // One of the Status constants above
	Message string `json:"message,omitempty"` // Human-readable message
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`   // Error code/type
	Details interface{} `json:"details,omitempty"` // Additional error details
}

// RegionResponse for a single region
type RegionResponse struct {
	BaseResponse
	Region *models.Region `json:"region"`
}

// RegionsResponse for the live regions of a transcript
type RegionsResponse struct {
	BaseResponse
	TranscriptID string          `json:"transcriptId"`
	Regions      []models.Region `json:"regions"`
	Count        int             `json:"count"`
}

// ChangesResponse for regions written after a timestamp, tombstones included
type ChangesResponse struct {
	BaseResponse
	TranscriptID string                `json:"transcriptId"`
	Since        int64                 `json:"since"`
	Items        []models.RemoteRegion `json:"items"`
	Count        int                   `json:"count"`
}

// StatusResponse reports whether the persistence service is applying a write
type StatusResponse struct {
	BaseResponse
	Busy bool `json:"busy"`
}

// UserResponse for the identity of the caller
type UserResponse struct {
	BaseResponse
	User *models.User `json:"user"`
}
