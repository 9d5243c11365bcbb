package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(h.Identify())
	router.GET("/me", h.Me)
	router.POST("/write", h.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": types.UserID(c)})
	})
	return router
}

func TestIdentify_HeaderMode(t *testing.T) {
	router := setupTestRouter(NewHandler(nil))

	t.Run("header identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(HeaderUserID, "alice")
		req.Header.Set(HeaderUserName, "Alice")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp types.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.User.ID)
		assert.Equal(t, "Alice", resp.User.DisplayName)
	})

	t.Run("missing identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestIdentify_TokenMode(t *testing.T) {
	tokens, err := identity.NewTokens("s3cret", time.Hour)
	require.NoError(t, err)
	router := setupTestRouter(NewHandler(tokens))

	signed, err := tokens.Issue(models.User{ID: "bob", DisplayName: "Bob"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		userHeader string
		wantStatus int
		wantUser   string
	}{
		{name: "valid token", header: "Bearer " + signed, wantStatus: http.StatusOK, wantUser: "bob"},
		{name: "bad scheme", header: "Token " + signed, wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "header identity is ignored", userHeader: "mallory", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/write", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.userHeader != "" {
				req.Header.Set(HeaderUserID, tt.userHeader)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantUser != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantUser, body["user"])
			}
		})
	}
}

type verifierFunc func(string) (*models.User, error)

func (f verifierFunc) Verify(token string) (*models.User, error) { return f(token) }

func TestIdentify_VerifierErrors(t *testing.T) {
	router := setupTestRouter(NewHandler(verifierFunc(func(token string) (*models.User, error) {
		switch token {
		case "reader":
			return nil, identity.ErrForbidden
		case "old":
			return nil, identity.ErrTokenExpired
		}
		return &models.User{ID: token}, nil
	})))

	for token, want := range map[string]int{
		"reader": http.StatusForbidden,
		"old":    http.StatusUnauthorized,
		"carol":  http.StatusOK,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, token)
	}
}
