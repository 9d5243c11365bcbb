package models

import "strings"

// Segment is a run of text carrying at most one attribute: the id of the issue
// that marks it. An empty IssueID means plain text.
type Segment struct {
	Text    string `json:"text"`
	IssueID string `json:"issueId,omitempty"`
}

// Plain creates an unmarked segment
func Plain(text string) Segment {
	return Segment{Text: text}
}

// Marked creates a segment marked by the given issue
func Marked(text, issueID string) Segment {
	return Segment{Text: text, IssueID: issueID}
}

// IsMarked reports whether the segment carries an issue marker
func (s Segment) IsMarked() bool {
	return s.IssueID != ""
}

// PlainText concatenates segment strings, dropping attributes.
func PlainText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// CloneSegments returns a copy of the slice
func CloneSegments(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

// SegmentsEqual compares two segment sequences value by value
func SegmentsEqual(a, b []Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
