package models

// Region is a time-bounded transcript unit holding text, a translation and
// the issues that annotate it.
type Region struct {
	ID           string    `json:"id"`
	TranscriptID string    `json:"transcriptId"`
	Start        float64   `json:"start"` // seconds
	End          float64   `json:"end"`   // seconds
	Text         []Segment `json:"text"`
	Translation  string    `json:"translation"`
	IsNote       bool      `json:"isNote"`

	// Maintained locally by the index maintainer. Values received over the
	// transport are bookkeeping only and never applied.
	Index        int `json:"index"`
	DisplayIndex int `json:"displayIndex"`

	UserLastUpdated string  `json:"userLastUpdated"`
	DateLastUpdated int64   `json:"dateLastUpdated"` // logical timestamp, larger wins
	Issues          []Issue `json:"issues"`
}

// PlainText returns the concatenation of the region's segment strings.
func (r Region) PlainText() string {
	return PlainText(r.Text)
}

// Clone returns a deep copy of the region
func (r Region) Clone() Region {
	out := r
	out.Text = CloneSegments(r.Text)
	out.Issues = CloneIssues(r.Issues)
	return out
}

// Position holds the derived ordering fields of a region
type Position struct {
	Index        int
	DisplayIndex int
}

// RemoteRegion is a region as delivered by the persistence service push.
// Deleted marks a tombstone.
type RemoteRegion struct {
	Region
	Deleted bool `json:"deleted,omitempty"`
}

// SnapshotEvent is one delivery from the snapshot subscription
type SnapshotEvent struct {
	TranscriptID string         `json:"transcriptId"`
	Items        []RemoteRegion `json:"items"`
}

// User identifies the writer of local edits
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
