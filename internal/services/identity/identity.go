// Package identity resolves who is making local edits and who sent a write.
package identity

import (
	"github.com/killallgit/transcript-sync/internal/models"
)

// Provider supplies the current user of a session
type Provider interface {
	CurrentUser() (*models.User, bool)
}

// Static is a Provider backed by a fixed user, usually from config
type Static struct {
	user models.User
}

// NewStatic creates a provider for the given user id and display name
func NewStatic(id, displayName string) *Static {
	if displayName == "" {
		displayName = id
	}
	return &Static{user: models.User{ID: id, DisplayName: displayName}}
}

// CurrentUser returns the configured user, or false when no id was set
func (s *Static) CurrentUser() (*models.User, bool) {
	if s == nil || s.user.ID == "" {
		return nil, false
	}
	u := s.user
	return &u, true
}
