package models

// Issue is an annotation marker anchored to a substring of a region's text
type Issue struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Index     int       `json:"index"` // rune offset into the region's plain text
	Resolved  bool      `json:"resolved"`
	Owner     string    `json:"owner"`
	CreatedAt int64     `json:"createdAt"`
	Comments  []Comment `json:"comments"`
}

// Comment is one entry in an issue's discussion thread
type Comment struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
}

// CloneIssues deep-copies an issue list
func CloneIssues(issues []Issue) []Issue {
	if issues == nil {
		return nil
	}
	out := make([]Issue, len(issues))
	for i, is := range issues {
		out[i] = is
		if is.Comments != nil {
			out[i].Comments = append([]Comment(nil), is.Comments...)
		}
	}
	return out
}

// IssueIDs returns the ids of the issues in order
func IssueIDs(issues []Issue) []string {
	ids := make([]string, len(issues))
	for i, is := range issues {
		ids[i] = is.ID
	}
	return ids
}

// IssuesEqual compares two issue lists including comments
func IssuesEqual(a, b []Issue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Type != y.Type || x.Text != y.Text || x.Index != y.Index ||
			x.Resolved != y.Resolved || x.Owner != y.Owner || x.CreatedAt != y.CreatedAt {
			return false
		}
		if len(x.Comments) != len(y.Comments) {
			return false
		}
		for j := range x.Comments {
			if x.Comments[j] != y.Comments[j] {
				return false
			}
		}
	}
	return true
}
