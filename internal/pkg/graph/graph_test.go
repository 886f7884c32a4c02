package graph

import (
	"testing"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func link(id uint, sponsor uint, minute int) models.SponsorLink {
	l := models.SponsorLink{UserID: id, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
	if sponsor != 0 {
		s := sponsor
		l.SponsorID = &s
	}
	return l
}

// 1 <- 2 <- 3 <- 4, plus 5 and 6 under 2 (6 registered before 5)
func sampleGraph() *Graph {
	return Build([]models.SponsorLink{
		link(1, 0, 0),
		link(2, 1, 1),
		link(3, 2, 2),
		link(4, 3, 3),
		link(5, 2, 9),
		link(6, 2, 5),
	})
}

func TestAncestorChain(t *testing.T) {
	g := sampleGraph()

	tests := []struct {
		name     string
		user     uint
		max      int
		expected []uint
	}{
		{name: "full chain", user: 4, max: 10, expected: []uint{3, 2, 1}},
		{name: "bounded", user: 4, max: 2, expected: []uint{3, 2}},
		{name: "root", user: 1, max: 5, expected: []uint{}},
		{name: "unknown user", user: 99, max: 5, expected: nil},
		{name: "zero levels", user: 4, max: 0, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.AncestorChain(tt.user, tt.max))
		})
	}
}

func TestAncestorChainStopsOnCycle(t *testing.T) {
	g := Build([]models.SponsorLink{
		link(1, 3, 0),
		link(2, 1, 1),
		link(3, 2, 2),
	})

	assert.Equal(t, []uint{1, 3}, g.AncestorChain(2, 10))
}

func TestAncestorChainSelfSponsor(t *testing.T) {
	g := Build([]models.SponsorLink{link(1, 1, 0)})
	assert.Empty(t, g.AncestorChain(1, 5))
	tree := g.Descendants(1, 5)
	require.NotNil(t, tree)
	assert.Empty(t, tree.Children)
}

func TestDanglingSponsorEndsWalk(t *testing.T) {
	g := Build([]models.SponsorLink{link(2, 77, 0), link(3, 2, 1)})
	assert.Equal(t, []uint{2}, g.AncestorChain(3, 5))
	_, ok := g.Sponsor(2)
	assert.False(t, ok)
}

func TestDirectDownlineOrderedByRegistration(t *testing.T) {
	g := sampleGraph()
	assert.Equal(t, []uint{3, 6, 5}, g.DirectDownline(2))
	assert.Empty(t, g.DirectDownline(4))
}

func TestDescendants(t *testing.T) {
	g := sampleGraph()

	tree := g.Descendants(1, 2)
	require.NotNil(t, tree)
	assert.Equal(t, uint(1), tree.ID)
	require.Len(t, tree.Children, 1)

	two := tree.Children[0]
	assert.Equal(t, 1, two.Level)
	require.Len(t, two.Children, 3)
	assert.Equal(t, uint(3), two.Children[0].ID)
	assert.Equal(t, 2, two.Children[0].Level)
	assert.Empty(t, two.Children[0].Children, "depth 3 is beyond the requested depth")
	assert.Equal(t, 4, tree.Size())
	assert.Equal(t, 3, two.Size())

	var missing *Tree
	assert.Zero(t, missing.Size())
}

func TestDescendantsDepthIsCapped(t *testing.T) {
	links := []models.SponsorLink{link(1, 0, 0)}
	for id := uint(2); id <= 20; id++ {
		links = append(links, link(id, id-1, int(id)))
	}
	g := Build(links)

	depth := 0
	for n := g.Descendants(1, 50); len(n.Children) > 0; n = n.Children[0] {
		depth++
	}
	assert.Equal(t, MaxDepth, depth)
}
