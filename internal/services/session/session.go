// Package session ties the region table, the write coordinator and the remote
// merger together for one transcript.
package session

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/internal/services/merger"
	"github.com/killallgit/transcript-sync/internal/services/outbox"
	"github.com/killallgit/transcript-sync/internal/services/reconcile"
	"github.com/killallgit/transcript-sync/internal/services/reindex"
	"github.com/killallgit/transcript-sync/internal/services/table"
	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
	"github.com/killallgit/transcript-sync/pkg/schedule"
)

// Config for a session
type Config struct {
	TranscriptID string
	Outbox       outbox.Config
}

// Session is the local view of one transcript's regions
type Session struct {
	cfg      Config
	user     models.User
	backend  Persistence
	store    *table.Table
	outbox   *outbox.Coordinator
	merger   *merger.Merger
	editor   Editor
	playback Playback
	now      func() time.Time

	// serialises local edits against remote merges
	mu       sync.Mutex
	failures map[string]error
}

// Option customises a session
type Option func(*Session)

// WithEditor attaches the rich-text editor adapter
func WithEditor(e Editor) Option {
	return func(s *Session) { s.editor = e }
}

// WithPlayback attaches the playback/waveform adapter
func WithPlayback(p Playback) Option {
	return func(s *Session) { s.playback = p }
}

// WithClock overrides the wall clock used for issue and comment timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session. The identity provider must know the current user.
func New(cfg Config, backend Persistence, scheduler schedule.Scheduler, users identity.Provider, opts ...Option) (*Session, error) {
	if cfg.TranscriptID == "" {
		return nil, apperrors.MissingFieldError("transcript_id")
	}
	user, ok := users.CurrentUser()
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "no current user")
	}

	s := &Session{
		cfg:      cfg,
		user:     *user,
		backend:  backend,
		store:    table.New(),
		now:      time.Now,
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.outbox = outbox.NewCoordinator(backend, scheduler, s, cfg.Outbox)
	s.merger = merger.New(s.store, s.user.ID, s.outbox)
	return s, nil
}

// User returns the identity local edits are written under
func (s *Session) User() models.User {
	return s.user
}

// Load fetches every region of the transcript, reconciles and indexes them
// and seeds the merger's high-water mark.
func (s *Session) Load(ctx context.Context) error {
	regions, err := s.backend.List(ctx, s.cfg.TranscriptID)
	if err != nil {
		return fmt.Errorf("loading transcript %s: %w", s.cfg.TranscriptID, err)
	}

	s.mu.Lock()
	var newest int64
	for i := range regions {
		regions[i].Text, regions[i].Issues = reconcile.Reconcile(regions[i].Text, regions[i].Issues)
		if regions[i].DateLastUpdated > newest {
			newest = regions[i].DateLastUpdated
		}
	}
	for _, r := range reindex.Reindex(regions) {
		s.store.Put(r)
	}
	s.merger.Init(newest)
	s.mu.Unlock()

	log.Printf("Session: loaded %d regions for transcript %s (high-water %d)", len(regions), s.cfg.TranscriptID, newest)
	s.publishRegions()
	return nil
}

// Regions returns the regions ordered by index
func (s *Session) Regions() []models.Region {
	regions := s.store.List()
	slices.SortStableFunc(regions, func(a, b models.Region) int {
		return a.Index - b.Index
	})
	return regions
}

// Region returns one region
func (s *Session) Region(id string) (models.Region, bool) {
	return s.store.Get(id)
}

// SyncState reports whether a region has unsent or failed edits
func (s *Session) SyncState(id string) outbox.State {
	return s.outbox.State(id)
}

// LastError returns the error of the region's last failed write, if it is
// still unsynced
func (s *Session) LastError(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[id]
}

// HighWaterMark exposes the merger's newest applied remote timestamp
func (s *Session) HighWaterMark() int64 {
	return s.merger.HighWaterMark()
}

// Update applies an edit locally and queues it for writing. Text and issue
// changes are reconciled first so both the table and the write carry
// canonical segments.
func (s *Session) Update(id string, patch models.RegionPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return s.apply(id, func(models.Region) (models.RegionPatch, error) {
		return patch, nil
	})
}

// apply builds a patch from the current local region and applies it while
// holding mu, so no remote merge lands between the read and the write.
func (s *Session) apply(id string, build func(local models.Region) (models.RegionPatch, error)) error {
	s.mu.Lock()
	local, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		log.Printf("Session: ignoring update for unknown region %s", id)
		return apperrors.NotFound("region", id)
	}
	patch, err := build(local)
	if err != nil || patch.IsEmpty() {
		s.mu.Unlock()
		return err
	}

	updated := patch.ApplyTo(local)
	var rewritten bool
	if patch.Text != nil || patch.Issues != nil {
		text, issues := reconcile.Reconcile(updated.Text, updated.Issues)
		rewritten = patch.Text == nil || !models.SegmentsEqual(text, *patch.Text)
		updated.Text, updated.Issues = text, issues
		patch.Text = models.Segments(models.CloneSegments(text))
		patch.Issues = models.Issues(models.CloneIssues(issues))
	}
	s.store.Put(updated)

	moved := reindex.NeedsReindex(local, updated)
	if moved {
		s.store.SetPositions(reindex.Compute(s.store.List()))
	}
	// queued under mu so whole-list patches reach the outbox in table order
	s.outbox.Update(id, patch)
	s.mu.Unlock()

	if rewritten && s.editor != nil {
		s.editor.SetText(id, updated.Text)
	}
	if moved {
		s.publishRegions()
	}
	return nil
}

// HandleEditorChange turns a user edit in the editor into an update. Changes
// we caused ourselves are ignored so they do not loop back.
func (s *Session) HandleEditorChange(ev EditorChange) error {
	if ev.Source != SourceUser {
		return nil
	}
	return s.Update(ev.RegionID, models.RegionPatch{Text: models.Segments(ev.Text)})
}

// ApplyRemote feeds a snapshot delivery to the merger and pushes the results
// to the attached adapters
func (s *Session) ApplyRemote(items []models.RemoteRegion) merger.Report {
	s.mu.Lock()
	report := s.merger.OnRemoteSnapshot(items)
	s.mu.Unlock()

	for id, outcome := range report.Outcomes {
		if outcome == merger.OutcomeRemoved {
			s.outbox.Forget(id)
		}
	}

	if s.editor != nil {
		for _, id := range report.Reconciled {
			if r, ok := s.store.Get(id); ok {
				s.editor.SetText(id, r.Text)
			}
		}
	}
	if len(report.Changed()) > 0 {
		s.publishRegions()
	}
	return report
}

// Retry re-arms the write of a region whose last flush failed
func (s *Session) Retry(id string) {
	s.mu.Lock()
	delete(s.failures, id)
	s.mu.Unlock()
	s.outbox.Retry(id)
}

// Close flushes every buffered edit
func (s *Session) Close(ctx context.Context) error {
	return s.outbox.FlushAll(ctx)
}

// WriteCommitted records the provenance the persistence service assigned.
// Content is left alone since newer local edits may already be applied.
func (s *Session) WriteCommitted(id string, written *models.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, id)
	if written == nil {
		return
	}
	local, ok := s.store.Get(id)
	if !ok {
		return
	}
	local.DateLastUpdated = written.DateLastUpdated
	local.UserLastUpdated = written.UserLastUpdated
	s.store.Put(local)
}

// WriteFailed keeps the error for the UI. The edit stays applied locally.
func (s *Session) WriteFailed(id string, err error) {
	log.Printf("Session: region %s is unsynced: %v", id, err)
	s.mu.Lock()
	s.failures[id] = err
	s.mu.Unlock()
}

// AddIssue anchors a new issue at the first matching token of the region text
func (s *Session) AddIssue(regionID, issueType, text string, index int) (models.Issue, error) {
	if text == "" {
		return models.Issue{}, apperrors.MissingFieldError("text")
	}
	issue := models.Issue{
		ID:        uuid.New().String(),
		Type:      issueType,
		Text:      text,
		Index:     index,
		Owner:     s.user.ID,
		CreatedAt: s.now().UnixMilli(),
	}
	err := s.updateIssues(regionID, func(issues []models.Issue) ([]models.Issue, error) {
		return append(issues, issue), nil
	})
	if err != nil {
		return models.Issue{}, err
	}
	if r, ok := s.store.Get(regionID); ok {
		for _, is := range r.Issues {
			if is.ID == issue.ID {
				return is, nil
			}
		}
	}
	return issue, nil
}

// ResolveIssue marks an issue resolved, which removes its highlight
func (s *Session) ResolveIssue(regionID, issueID string) error {
	return s.editIssue(regionID, issueID, func(issues []models.Issue, i int) []models.Issue {
		issues[i].Resolved = true
		return issues
	})
}

// DeleteIssue removes an issue and its highlight
func (s *Session) DeleteIssue(regionID, issueID string) error {
	return s.editIssue(regionID, issueID, func(issues []models.Issue, i int) []models.Issue {
		return slices.Delete(issues, i, i+1)
	})
}

// AddComment appends a comment by the current user to an issue's thread
func (s *Session) AddComment(regionID, issueID, text string) error {
	if text == "" {
		return apperrors.MissingFieldError("text")
	}
	comment := models.Comment{Text: text, Author: s.user.ID, CreatedAt: s.now().UnixMilli()}
	return s.editIssue(regionID, issueID, func(issues []models.Issue, i int) []models.Issue {
		issues[i].Comments = append(issues[i].Comments, comment)
		return issues
	})
}

func (s *Session) editIssue(regionID, issueID string, edit func([]models.Issue, int) []models.Issue) error {
	return s.updateIssues(regionID, func(issues []models.Issue) ([]models.Issue, error) {
		i := slices.IndexFunc(issues, func(is models.Issue) bool { return is.ID == issueID })
		if i < 0 {
			return nil, apperrors.NotFound("issue", issueID)
		}
		return edit(issues, i), nil
	})
}

// updateIssues rewrites the region's issue list from its current local value.
// edit receives a copy it may modify.
func (s *Session) updateIssues(regionID string, edit func([]models.Issue) ([]models.Issue, error)) error {
	return s.apply(regionID, func(local models.Region) (models.RegionPatch, error) {
		issues, err := edit(models.CloneIssues(local.Issues))
		if err != nil {
			return models.RegionPatch{}, err
		}
		return models.RegionPatch{Issues: models.Issues(issues)}, nil
	})
}

func (s *Session) publishRegions() {
	if s.playback != nil {
		s.playback.SetRegions(s.Regions())
	}
}
