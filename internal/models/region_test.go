package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegion_PlainText(t *testing.T) {
	r := Region{Text: []Segment{Plain("kia "), Marked("ora", "i1"), Plain(" koutou")}}
	assert.Equal(t, "kia ora koutou", r.PlainText())

	// callable on values held in maps and slices
	byID := map[string]Region{"r1": r}
	assert.Equal(t, "kia ora koutou", byID["r1"].PlainText())
	assert.Empty(t, Region{}.PlainText())
}

func TestRegion_Clone(t *testing.T) {
	r := Region{
		ID:     "r1",
		Text:   []Segment{Marked("ora", "i1")},
		Issues: []Issue{{ID: "i1", Text: "ora", Comments: []Comment{{Text: "check"}}}},
	}

	c := r.Clone()
	c.Text[0].Text = "changed"
	c.Issues[0].Text = "changed"

	require.Len(t, r.Text, 1)
	assert.Equal(t, "ora", r.Text[0].Text)
	assert.Equal(t, "ora", r.Issues[0].Text)
	assert.Equal(t, r.ID, c.ID)
}
