package session

import (
	"context"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/outbox"
)

// Persistence is the remote store a session loads from and writes to
type Persistence interface {
	outbox.Backend

	// List returns every live region of a transcript
	List(ctx context.Context, transcriptID string) ([]models.Region, error)
}

// Source tells whether an editor change came from the user or from us
type Source string

const (
	SourceUser         Source = "user"
	SourceProgrammatic Source = "programmatic"
)

// EditorChange is a text change reported by the rich-text editor
type EditorChange struct {
	RegionID string
	Text     []models.Segment
	Source   Source
}

// Editor receives canonical segments after reconciliation. Implementations
// must report the resulting change event with SourceProgrammatic.
type Editor interface {
	SetText(regionID string, text []models.Segment)
}

// Playback receives the ordered region list whenever it changes
type Playback interface {
	SetRegions(regions []models.Region)
}
