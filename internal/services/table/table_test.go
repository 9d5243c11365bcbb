package table

import (
	"testing"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tbl := New()
	tbl.Put(models.Region{ID: "b", Start: 5})
	tbl.Put(models.Region{ID: "a", Start: 1})
	tbl.Put(models.Region{ID: "b", Start: 6})

	list := tbl.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, 6.0, list[0].Start)
	assert.Equal(t, "a", list[1].ID)

	t.Run("get returns a copy", func(t *testing.T) {
		tbl.Put(models.Region{ID: "c", Text: []models.Segment{models.Plain("x")}})
		r, ok := tbl.Get("c")
		require.True(t, ok)
		r.Text[0].Text = "mutated"

		again, _ := tbl.Get("c")
		assert.Equal(t, "x", again.Text[0].Text)
	})

	t.Run("delete", func(t *testing.T) {
		assert.True(t, tbl.Delete("c"))
		assert.False(t, tbl.Delete("c"))
		_, ok := tbl.Get("c")
		assert.False(t, ok)
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("positions", func(t *testing.T) {
		changed := tbl.SetPositions(map[string]models.Position{
			"a": {Index: 0, DisplayIndex: 1},
			"b": {Index: 1, DisplayIndex: 2},
		})
		assert.ElementsMatch(t, []string{"a", "b"}, changed)

		changed = tbl.SetPositions(map[string]models.Position{
			"a": {Index: 0, DisplayIndex: 1},
		})
		assert.Empty(t, changed)
	})
}
