package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
)

// Header carrying the writer identity when no token secret is configured
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Handler resolves the writer identity of requests
type Handler struct {
	tokens identity.Verifier
}

// NewHandler creates a new auth handler. With nil tokens the identity is
// taken from the X-User-ID header as-is.
func NewHandler(tokens identity.Verifier) *Handler {
	return &Handler{tokens: tokens}
}

// Me returns the identity the request was made under
func (h *Handler) Me(c *gin.Context) {
	userID := types.UserID(c)
	if userID == "" {
		types.SendUnauthorized(c, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, types.UserResponse{
		BaseResponse: types.BaseResponse{Status: types.StatusOK},
		User:         &models.User{ID: userID, DisplayName: c.GetString(types.ContextDisplayName)},
	})
}

// Identify stores the caller's identity in the context when one is given.
// Requests without credentials pass through; invalid tokens are rejected.
func (h *Handler) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.tokens == nil {
			if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
				setUser(c, &models.User{ID: userID, DisplayName: c.GetHeader(HeaderUserName)})
			}
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			types.SendUnauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		user, err := h.tokens.Verify(parts[1])
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrForbidden):
				types.SendForbidden(c, "Insufficient permissions")
			case errors.Is(err, identity.ErrTokenExpired):
				types.SendUnauthorized(c, "Token expired")
			default:
				types.SendUnauthorized(c, "Invalid token")
			}
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireUser rejects requests that carry no writer identity
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if types.UserID(c) == "" {
			types.SendUnauthorized(c, "Writer identity required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User) {
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	c.Set(types.ContextUserID, user.ID)
	c.Set(types.ContextDisplayName, name)
}
