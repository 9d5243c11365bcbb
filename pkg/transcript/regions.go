package transcript

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/killallgit/transcript-sync/internal/models"
)

// RegionID derives a stable region id from a cue's position in the file, so
// importing the same file twice addresses the same regions.
func RegionID(transcriptID string, n int, cue Cue) string {
	name := fmt.Sprintf("%s/%d/%.3f-%.3f", transcriptID, n, cue.Start, cue.End)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// ToRegions converts cues into unmarked regions of the given transcript
func ToRegions(transcriptID string, cues []Cue) []models.Region {
	regions := make([]models.Region, 0, len(cues))
	for n, cue := range cues {
		regions = append(regions, models.Region{
			ID:           RegionID(transcriptID, n, cue),
			TranscriptID: transcriptID,
			Start:        cue.Start,
			End:          cue.End,
			Text:         []models.Segment{models.Plain(cue.Text)},
		})
	}
	return regions
}
