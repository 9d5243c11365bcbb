package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/killallgit/transcript-sync/internal/client"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/internal/services/merger"
	"github.com/killallgit/transcript-sync/internal/services/outbox"
	"github.com/killallgit/transcript-sync/internal/services/session"
	"github.com/killallgit/transcript-sync/internal/services/workers"
	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/killallgit/transcript-sync/pkg/schedule"
	"github.com/spf13/cobra"
)

// watchCmd runs a sync session against a server and logs what it merges
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a transcript as a sync client",
	Long: `Load a transcript from a server and keep a local copy in sync.

Remote snapshots are merged as they arrive over the event stream, or by
polling when sync.stream is false. Every accepted, rejected and reindexed
region is logged until the command is interrupted.

Example:
  transcript-sync watch --transcript t1 --user alice
  transcript-sync watch --server http://sync.local:8080 --transcript t1 --poll`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("server", "", "server URL (overrides sync.server_url)")
	watchCmd.Flags().String("transcript", "", "transcript id (overrides sync.transcript_id)")
	watchCmd.Flags().String("user", "", "user id (overrides sync.user_id)")
	watchCmd.Flags().Bool("poll", false, "poll instead of streaming")
}

// clientConfig merges the server, transcript and user flags over the sync
// configuration
func clientConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.Sync.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("transcript"); v != "" {
		cfg.Sync.TranscriptID = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.Sync.UserID = v
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds the HTTP persistence client for cfg
func newClient(cfg *config.Config) *client.Client {
	return client.NewClient(client.Config{
		BaseURL:      cfg.Sync.ServerURL,
		TranscriptID: cfg.Sync.TranscriptID,
		UserID:       cfg.Sync.UserID,
		DisplayName:  cfg.Sync.DisplayName,
		Token:        cfg.Sync.Token,
		Timeout:      cfg.Sync.WriteTimeout,
		WriteRate:    cfg.Sync.WriteRate,
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := clientConfig(cmd)
	if err != nil {
		return err
	}
	if poll, _ := cmd.Flags().GetBool("poll"); poll {
		cfg.Sync.Stream = false
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c := newClient(cfg)

	userID := cfg.Sync.UserID
	if userID == "" {
		// the server decides who a token belongs to
		if userID, err = c.Me(ctx); err != nil {
			return fmt.Errorf("resolving token identity: %w", err)
		}
	}

	timers := schedule.NewTimers()
	defer timers.Stop()

	s, err := session.New(session.Config{
		TranscriptID: cfg.Sync.TranscriptID,
		Outbox: outbox.Config{
			Debounce:     cfg.Sync.Debounce,
			Backoff:      cfg.Sync.Backoff,
			WriteTimeout: cfg.Sync.WriteTimeout,
		},
	}, c, timers, identity.NewStatic(userID, cfg.Sync.DisplayName), session.WithPlayback(playbackLog{}))
	if err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}

	var stopWorker func()
	if cfg.Sync.Stream {
		streamer := workers.NewStreamer("watch", cfg.Sync.TranscriptID, c, c, s, cfg.Sync.PollInterval, logReport)
		streamer.Start(ctx)
		stopWorker = streamer.Stop
	} else {
		poller := workers.NewPoller("watch", cfg.Sync.TranscriptID, c, s, cfg.Sync.PollInterval, logReport)
		poller.Start(ctx)
		stopWorker = poller.Stop
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
	case <-ctx.Done():
	}
	log.Printf("Watch: stopping")
	stopWorker()

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), cfg.Sync.WriteTimeout)
	defer cancelFlush()
	return s.Close(flushCtx)
}

// playbackLog prints the region order whenever it changes
type playbackLog struct{}

func (playbackLog) SetRegions(regions []models.Region) {
	for _, r := range regions {
		kind := "region"
		if r.IsNote {
			kind = "note"
		}
		log.Printf("Watch: #%d [%d] %s %s %.2f-%.2f %q", r.Index, r.DisplayIndex, kind, r.ID, r.Start, r.End, r.PlainText())
	}
}

func logReport(report merger.Report) {
	ids := make([]string, 0, len(report.Outcomes))
	for id := range report.Outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		log.Printf("Watch: %s %s", id, report.Outcomes[id])
	}
	if len(report.Reindexed) > 0 {
		log.Printf("Watch: reindexed %v", report.Reindexed)
	}
}
