package client

import "github.com/killallgit/transcript-sync/internal/models"

// errorResponse is the body of every non-2xx API response
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type regionResponse struct {
	Status string         `json:"status"`
	Region *models.Region `json:"region"`
}

type regionsResponse struct {
	Status  string          `json:"status"`
	Regions []models.Region `json:"regions"`
	Count   int             `json:"count"`
}

type changesResponse struct {
	Status string                `json:"status"`
	Since  int64                 `json:"since"`
	Items  []models.RemoteRegion `json:"items"`
	Count  int                   `json:"count"`
}

type statusResponse struct {
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
}

type userResponse struct {
	Status string       `json:"status"`
	User   *models.User `json:"user"`
}
