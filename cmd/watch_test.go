package cmd

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/transcript-sync/api"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/killallgit/transcript-sync/internal/services/snapshots"
	"github.com/killallgit/transcript-sync/pkg/config"
)

// startTestServer serves the HTTP API with one region on an in-memory store
func startTestServer(t *testing.T, cfgFile string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.SetConfigFile(cfgFile)
	if err := config.Load(); err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	db, err := database.Open(":memory:", false)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	broker := snapshots.NewMemoryBroker()
	service := regions.NewService(regions.NewRepository(db.DB), broker)
	if _, err := service.Create(context.Background(), models.Region{
		ID: "r1", TranscriptID: "t1", Start: 0, End: 1,
		Text: []models.Segment{models.Plain("kia ora")},
	}, "alice"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	server := api.NewServer(":0")
	server.SetDependencies(&types.Dependencies{DB: db, RegionService: service, Broker: broker})
	if err := server.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	ts := httptest.NewServer(server.Engine())
	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		_ = broker.Close()
		ts.Close()
		_ = db.Close()
	})
	return ts
}

func TestWatchCommand(t *testing.T) {
	cfgFile := isolatedConfig(t)
	ts := startTestServer(t, cfgFile)

	for _, mode := range []string{"--poll", "--poll=false"} {
		t.Run(mode, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			out, err := execute(t, ctx, "watch", "--config", cfgFile,
				"--server", ts.URL, "--transcript", "t1", "--user", "bob", mode)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !strings.Contains(out, "loaded 1 regions") {
				t.Errorf("Expected the load to be logged, got %q", out)
			}
			if !strings.Contains(out, `"kia ora"`) {
				t.Errorf("Expected the region order to be logged, got %q", out)
			}
		})
	}
}

func TestWatchCommand_RequiresTranscript(t *testing.T) {
	cfgFile := isolatedConfig(t)
	t.Setenv("TSYNC_SYNC_TRANSCRIPT_ID", "")

	_, err := execute(t, nil, "watch", "--config", cfgFile, "--transcript", "", "--user", "bob")
	if err == nil || !strings.Contains(err.Error(), "sync.transcript_id") {
		t.Errorf("Expected a transcript id error, got %v", err)
	}
}
