package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFirstSeenWins(t *testing.T) {
	shoes := []Product{
		{ID: "https://shop.example/p/1", Title: "Runner", SourceCategory: "shoes"},
		{ID: "https://shop.example/p/2", Title: "Boot", SourceCategory: "shoes"},
	}
	sale := []Product{
		{ID: "https://shop.example/p/2", Title: "Boot", SourceCategory: "sale"},
		{ID: "https://shop.example/p/3", Title: "Sandal", SourceCategory: "sale"},
		{ID: "https://shop.example/p/3", Title: "Sandal again", SourceCategory: "sale"},
	}

	merged := Merge(shoes, sale)

	assert.Len(t, merged, 3)
	assert.Equal(t, []string{"https://shop.example/p/1", "https://shop.example/p/2", "https://shop.example/p/3"},
		[]string{merged[0].ID, merged[1].ID, merged[2].ID})
	assert.Equal(t, "shoes", merged[1].SourceCategory)
	assert.Equal(t, "Sandal", merged[2].Title)
}

func TestMergeNoDuplicateIDs(t *testing.T) {
	lists := [][]Product{
		{{ID: "a"}, {ID: "b"}, {ID: "a"}},
		{},
		{{ID: "c"}, {ID: "b"}},
		nil,
		{{ID: "d"}, {ID: "c"}, {ID: "a"}},
	}

	merged := Merge(lists...)

	seen := make(map[string]bool)
	for _, p := range merged {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, merged, 4)
	assert.Empty(t, Merge())
}
