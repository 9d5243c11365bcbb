package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService reports a fixed busy state
type stubService struct {
	regions.Service
	busy bool
}

func (s *stubService) IsBusy() bool { return s.busy }

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, busy := range []bool{false, true} {
		router := gin.New()
		RegisterRoutes(router.Group("/api/v1"), &types.Dependencies{RegionService: &stubService{busy: busy}})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp types.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.StatusOK, resp.Status)
		assert.Equal(t, busy, resp.Busy)
	}
}
