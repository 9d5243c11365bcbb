package transcripts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/killallgit/transcript-sync/internal/services/snapshots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireHeaderUser(c *gin.Context) {
	if id := c.GetHeader("X-User-ID"); id != "" {
		c.Set(types.ContextUserID, id)
		c.Next()
		return
	}
	types.SendUnauthorized(c, "Writer identity required")
	c.Abort()
}

func setupTestRouter(t *testing.T, broker snapshots.Broker) (*gin.Engine, *regions.ServiceImpl) {
	gin.SetMode(gin.TestMode)

	db, err := database.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	var publisher regions.Publisher
	if broker != nil {
		publisher = broker
	}
	service := regions.NewService(regions.NewRepository(db.DB), publisher)

	deps := &types.Dependencies{RegionService: service}
	if broker != nil {
		deps.Broker = broker
	}

	router := gin.New()
	RegisterRoutes(router.Group("/transcripts"), deps, requireHeaderUser)
	return router, service
}

func createRegion(t *testing.T, service *regions.ServiceImpl, id string, start float64) *models.Region {
	region, err := service.Create(context.Background(), models.Region{
		ID:           id,
		TranscriptID: "t1",
		Start:        start,
		End:          start + 1,
		Text:         []models.Segment{models.Plain("haere mai")},
	}, "alice")
	require.NoError(t, err)
	return region
}

func TestListRegions(t *testing.T) {
	router, service := setupTestRouter(t, nil)
	createRegion(t, service, "b", 5)
	first := createRegion(t, service, "a", 1)

	t.Run("live regions in start order", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/t1/regions", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp types.RegionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "a", resp.Regions[0].ID)
		assert.Equal(t, "b", resp.Regions[1].ID)
	})

	t.Run("changes since", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := "/transcripts/t1/regions?since=" + jsonNumber(first.DateLastUpdated-1)
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp types.ChangesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "a", resp.Items[0].ID)
	})

	t.Run("invalid since", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/t1/regions?since=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown transcript", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/none/regions", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp types.RegionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
	})
}

func TestCreateRegion(t *testing.T) {
	router, service := setupTestRouter(t, nil)

	tests := []struct {
		name           string
		body           string
		userID         string
		expectedStatus int
	}{
		{name: "valid region", body: `{"id":"r1","transcriptId":"other","start":1,"end":2}`, userID: "alice", expectedStatus: http.StatusCreated},
		{name: "duplicate id", body: `{"id":"r1","start":1,"end":2}`, userID: "alice", expectedStatus: http.StatusConflict},
		{name: "negative start", body: `{"start":-1,"end":2}`, userID: "alice", expectedStatus: http.StatusBadRequest},
		{name: "missing identity", body: `{"start":1,"end":2}`, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/transcripts/t1/regions", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	// the path decides the transcript
	region, err := service.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "t1", region.TranscriptID)
	assert.Equal(t, "alice", region.UserLastUpdated)
}

func TestStream_NotConfigured(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/t1/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// sseReader yields (event, data) pairs from a server-sent event stream
type sseReader struct {
	scanner *bufio.Scanner
}

func (r *sseReader) next(t *testing.T) (string, string) {
	var event, data string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	t.Fatalf("stream ended: %v", r.scanner.Err())
	return "", ""
}

func openStream(t *testing.T, server *httptest.Server, query string) *sseReader {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/transcripts/t1/stream"+query, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return &sseReader{scanner: bufio.NewScanner(resp.Body)}
}

func TestStream(t *testing.T) {
	broker := snapshots.NewMemoryBroker()
	defer broker.Close()
	router, service := setupTestRouter(t, broker)

	server := httptest.NewServer(router)
	defer server.Close()

	t.Run("live events", func(t *testing.T) {
		stream := openStream(t, server, "")

		event, data := stream.next(t)
		require.Equal(t, "ready", event)
		assert.Equal(t, "t1", data)

		createRegion(t, service, "live", 3)

		event, data = stream.next(t)
		require.Equal(t, "snapshot", event)
		var snapshot models.SnapshotEvent
		require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
		assert.Equal(t, "t1", snapshot.TranscriptID)
		require.Len(t, snapshot.Items, 1)
		assert.Equal(t, "live", snapshot.Items[0].ID)
	})

	t.Run("backlog first", func(t *testing.T) {
		stream := openStream(t, server, "?since=0")

		event, data := stream.next(t)
		require.Equal(t, "snapshot", event)
		var snapshot models.SnapshotEvent
		require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
		require.Len(t, snapshot.Items, 1)
		assert.Equal(t, "live", snapshot.Items[0].ID)
	})

	t.Run("heartbeat", func(t *testing.T) {
		prev := HeartbeatInterval
		HeartbeatInterval = 20 * time.Millisecond
		defer func() { HeartbeatInterval = prev }()

		stream := openStream(t, server, "")
		event, _ := stream.next(t)
		require.Equal(t, "ready", event)

		event, _ = stream.next(t)
		assert.Equal(t, "ping", event)
	})
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
