package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/killallgit/transcript-sync/internal/services/snapshots"
	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, tokens identity.Verifier) *Server {
	gin.SetMode(gin.TestMode)
	config.SetConfigFile("testdata/missing.yaml")
	require.NoError(t, config.Load())

	db, err := database.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	broker := snapshots.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	server := NewServer(":0")
	server.SetDependencies(&types.Dependencies{
		DB:            db,
		RegionService: regions.NewService(regions.NewRepository(db.DB), broker),
		Broker:        broker,
		Tokens:        tokens,
		Version:       "test",
	})
	require.NoError(t, server.Initialize())
	t.Cleanup(func() { close(server.cleanupStop) })
	return server
}

func TestInitialize_RequiresRegionService(t *testing.T) {
	server := NewServer(":0")
	server.SetDependencies(&types.Dependencies{})
	assert.Error(t, server.Initialize())
}

func TestServer_Routes(t *testing.T) {
	server := setupTestServer(t, nil)
	engine := server.Engine()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		userID         string
		expectedStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK},
		{name: "status", method: http.MethodGet, path: "/api/v1/status", expectedStatus: http.StatusOK},
		{name: "me without identity", method: http.MethodGet, path: "/api/v1/me", expectedStatus: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, path: "/api/v1/me", userID: "alice", expectedStatus: http.StatusOK},
		{name: "create without identity", method: http.MethodPost, path: "/api/v1/transcripts/t1/regions", body: `{"start":1,"end":2}`, expectedStatus: http.StatusUnauthorized},
		{name: "create", method: http.MethodPost, path: "/api/v1/transcripts/t1/regions", body: `{"id":"r1","start":1,"end":2}`, userID: "alice", expectedStatus: http.StatusCreated},
		{name: "list", method: http.MethodGet, path: "/api/v1/transcripts/t1/regions", expectedStatus: http.StatusOK},
		{name: "get", method: http.MethodGet, path: "/api/v1/regions/r1", expectedStatus: http.StatusOK},
		{name: "patch", method: http.MethodPatch, path: "/api/v1/regions/r1", body: `{"translation":"hi"}`, userID: "bob", expectedStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestServer_TokenIdentity(t *testing.T) {
	tokens, err := identity.NewTokens("s3cret", time.Hour)
	require.NoError(t, err)
	engine := setupTestServer(t, tokens).Engine()

	token, err := tokens.Issue(models.User{ID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	// header identity is ignored once tokens are configured
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcripts/t1/regions", bytes.NewBufferString(`{"start":1,"end":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "mallory")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/transcripts/t1/regions", bytes.NewBufferString(`{"start":1,"end":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp types.RegionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Region.UserLastUpdated)
}
