// Package reconcile re-anchors issue markers to a region's text after edits.
//
// All offsets are rune offsets into the plain text obtained by concatenating
// the segment strings.
package reconcile

import (
	"sort"
	"unicode/utf8"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Reconcile rewrites text so that every active issue marks the substring it
// refers to, and returns the issues with their offsets recomputed.
//
// Markers for resolved or unknown issues are stripped. An existing marker is
// kept when the marked run still reads exactly the issue's text; otherwise the
// issue is searched for as a whole token in the plain text, taking the first
// occurrence not already claimed by another issue. Earlier-created issues
// claim first. An issue that cannot be placed keeps its stored offset and
// stays unmarked.
//
// Reconcile never mutates its arguments and always returns a value. When
// nothing changes the input slices are returned as-is.
func Reconcile(text []models.Segment, issues []models.Issue) ([]models.Segment, []models.Issue) {
	active := activeIssues(issues)

	segs := normalize(text, func(_ int, s models.Segment) string {
		if _, ok := active[s.IssueID]; ok {
			return s.IssueID
		}
		return ""
	})

	order := priority(issues)
	anchors := make(map[string]int, len(order))
	var claimed []span

	// Keep markers that still cover their issue's text.
	runs := markedRuns(segs)
	for _, i := range order {
		is := issues[i]
		if _, done := anchors[is.ID]; done {
			continue
		}
		for _, r := range runs[is.ID] {
			if is.Text != "" && r.text == is.Text {
				anchors[is.ID] = r.start
				claimed = append(claimed, span{r.start, r.end})
				break
			}
		}
	}
	segs = normalize(segs, func(offset int, s models.Segment) string {
		// only the anchored run of an issue keeps its marker
		if start, ok := anchors[s.IssueID]; ok && start == offset {
			return s.IssueID
		}
		return ""
	})

	// Search for the rest.
	plain := []rune(models.PlainText(segs))
	for _, i := range order {
		is := issues[i]
		if _, done := anchors[is.ID]; done {
			continue
		}
		k, ok := findToken(plain, []rune(is.Text), claimed)
		if !ok {
			continue
		}
		n := len([]rune(is.Text))
		anchors[is.ID] = k
		claimed = append(claimed, span{k, k + n})
		segs = mark(segs, k, k+n, is.ID)
	}

	return pick(text, segs), withOffsets(issues, anchors)
}

type span struct {
	start, end int
}

func (s span) overlaps(start, end int) bool {
	return start < s.end && s.start < end
}

type run struct {
	start, end int
	text       string
}

// activeIssues indexes the unresolved issues by id
func activeIssues(issues []models.Issue) map[string]struct{} {
	active := make(map[string]struct{}, len(issues))
	for _, is := range issues {
		if !is.Resolved && is.ID != "" {
			active[is.ID] = struct{}{}
		}
	}
	return active
}

// priority returns the indices of active issues ordered by CreatedAt.
// Issues created at the same instant keep their list order.
func priority(issues []models.Issue) []int {
	var order []int
	for i, is := range issues {
		if !is.Resolved && is.ID != "" {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return issues[order[a]].CreatedAt < issues[order[b]].CreatedAt
	})
	return order
}

// normalize relabels every segment with attr, drops empty segments and merges
// neighbours that end up with the same attribute. attr receives the rune
// offset of the segment within the input.
func normalize(segments []models.Segment, attr func(offset int, s models.Segment) string) []models.Segment {
	out := make([]models.Segment, 0, len(segments))
	offset := 0
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		start := offset
		offset += len([]rune(s.Text))
		s.IssueID = attr(start, s)
		if n := len(out); n > 0 && out[n-1].IssueID == s.IssueID {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// markedRuns lists the marked runs of each issue with their rune offsets.
// segments must be normalized.
func markedRuns(segments []models.Segment) map[string][]run {
	runs := make(map[string][]run)
	offset := 0
	for _, s := range segments {
		n := len([]rune(s.Text))
		if s.IsMarked() {
			runs[s.IssueID] = append(runs[s.IssueID], run{start: offset, end: offset + n, text: s.Text})
		}
		offset += n
	}
	return runs
}

// findToken returns the first whole-token occurrence of needle in haystack
// that overlaps no claimed span.
func findToken(haystack, needle []rune, claimed []span) (int, bool) {
	n := len(needle)
	if n == 0 || n > len(haystack) {
		return 0, false
	}
	for k := 0; k+n <= len(haystack); k++ {
		if !equalAt(haystack, needle, k) {
			continue
		}
		if !tokenBoundary(haystack, needle, k) {
			continue
		}
		free := true
		for _, c := range claimed {
			if c.overlaps(k, k+n) {
				free = false
				break
			}
		}
		if free {
			return k, true
		}
	}
	return 0, false
}

func equalAt(haystack, needle []rune, k int) bool {
	for i, r := range needle {
		if haystack[k+i] != r {
			return false
		}
	}
	return true
}

// mark splits segments so that [start, end) forms runs carrying issueID.
// The range must not intersect another issue's marker.
func mark(segments []models.Segment, start, end int, issueID string) []models.Segment {
	out := make([]models.Segment, 0, len(segments)+2)
	offset := 0
	for _, s := range segments {
		segStart, segEnd := offset, offset+utf8.RuneCountInString(s.Text)
		offset = segEnd
		if segEnd <= start || segStart >= end {
			out = append(out, s)
			continue
		}
		lo := runeIndex(s.Text, max(start, segStart)-segStart)
		hi := runeIndex(s.Text, min(end, segEnd)-segStart)
		if lo > 0 {
			out = append(out, models.Segment{Text: s.Text[:lo], IssueID: s.IssueID})
		}
		out = append(out, models.Marked(s.Text[lo:hi], issueID))
		if hi < len(s.Text) {
			out = append(out, models.Segment{Text: s.Text[hi:], IssueID: s.IssueID})
		}
	}
	return normalize(out, func(_ int, s models.Segment) string { return s.IssueID })
}

// runeIndex returns the byte index of the n-th rune of s. Invalid bytes count
// as one rune each, as they do in a []rune conversion, and are kept as-is.
func runeIndex(s string, n int) int {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// pick returns the original slice when the rewrite produced the same value
func pick(original, rewritten []models.Segment) []models.Segment {
	if models.SegmentsEqual(original, rewritten) {
		return original
	}
	return rewritten
}

// withOffsets returns issues with anchored offsets applied, or the original
// slice if no offset moved.
func withOffsets(issues []models.Issue, anchors map[string]int) []models.Issue {
	changed := false
	for _, is := range issues {
		if k, ok := anchors[is.ID]; ok && !is.Resolved && k != is.Index {
			changed = true
			break
		}
	}
	if !changed {
		return issues
	}
	out := models.CloneIssues(issues)
	for i := range out {
		if out[i].Resolved {
			continue
		}
		if k, ok := anchors[out[i].ID]; ok {
			out[i].Index = k
		}
	}
	return out
}
