// Package graph holds the sponsorship forest as an arena of nodes indexed by user id.
// The store does not guarantee acyclicity, so every walk is bounded.
package graph

import (
	"sort"

	"github.com/ManuelReschke/PayMatrix/app/models"
)

// MaxDepth is the hard ceiling of a descendant walk.
const MaxDepth = 10

type node struct {
	id        uint
	sponsor   int // arena index, -1 for roots and dangling sponsors
	children  []int
	createdAt int64
}

// Graph is an immutable snapshot of the sponsor table.
type Graph struct {
	nodes []node
	index map[uint]int
}

// Tree is one node of a descendant walk.
type Tree struct {
	ID       uint    `json:"id"`
	Level    int     `json:"level"`
	Children []*Tree `json:"children,omitempty"`
}

// Size counts the nodes below t.
func (t *Tree) Size() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, c := range t.Children {
		n += 1 + c.Size()
	}
	return n
}

// Build creates the arena from the flat parent-pointer rows.
func Build(links []models.SponsorLink) *Graph {
	g := &Graph{
		nodes: make([]node, 0, len(links)),
		index: make(map[uint]int, len(links)),
	}
	for _, l := range links {
		if _, dup := g.index[l.UserID]; dup {
			continue
		}
		g.index[l.UserID] = len(g.nodes)
		g.nodes = append(g.nodes, node{id: l.UserID, sponsor: -1, createdAt: l.CreatedAt.UnixNano()})
	}
	for _, l := range links {
		if l.SponsorID == nil {
			continue
		}
		child := g.index[l.UserID]
		parent, ok := g.index[*l.SponsorID]
		if !ok || g.nodes[child].sponsor != -1 {
			continue
		}
		g.nodes[child].sponsor = parent
		g.nodes[parent].children = append(g.nodes[parent].children, child)
	}
	for i := range g.nodes {
		children := g.nodes[i].children
		sort.SliceStable(children, func(a, b int) bool {
			na, nb := g.nodes[children[a]], g.nodes[children[b]]
			if na.createdAt != nb.createdAt {
				return na.createdAt < nb.createdAt
			}
			return na.id < nb.id
		})
	}
	return g
}

// Len returns the number of users in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Sponsor returns the direct upline of userID.
func (g *Graph) Sponsor(userID uint) (uint, bool) {
	i, ok := g.index[userID]
	if !ok || g.nodes[i].sponsor < 0 {
		return 0, false
	}
	return g.nodes[g.nodes[i].sponsor].id, true
}

// AncestorChain returns up to maxLevels uplines of userID, immediate sponsor first.
// The walk ends at a root, a dangling sponsor or a node it has already visited.
func (g *Graph) AncestorChain(userID uint, maxLevels int) []uint {
	i, ok := g.index[userID]
	if !ok || maxLevels <= 0 {
		return nil
	}
	visited := map[int]struct{}{i: {}}
	chain := make([]uint, 0, maxLevels)
	for len(chain) < maxLevels {
		parent := g.nodes[i].sponsor
		if parent < 0 {
			break
		}
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		chain = append(chain, g.nodes[parent].id)
		i = parent
	}
	return chain
}

// DirectDownline returns the immediate children of userID in registration order.
func (g *Graph) DirectDownline(userID uint) []uint {
	i, ok := g.index[userID]
	if !ok {
		return nil
	}
	out := make([]uint, 0, len(g.nodes[i].children))
	for _, c := range g.nodes[i].children {
		out = append(out, g.nodes[c].id)
	}
	return out
}

// Descendants walks the downline of userID breadth-first. maxDepth is clamped to MaxDepth.
func (g *Graph) Descendants(userID uint, maxDepth int) *Tree {
	i, ok := g.index[userID]
	if !ok {
		return nil
	}
	if maxDepth > MaxDepth || maxDepth < 0 {
		maxDepth = MaxDepth
	}

	type item struct {
		idx  int
		tree *Tree
	}
	root := &Tree{ID: userID, Level: 0}
	visited := map[int]struct{}{i: {}}
	level := []item{{idx: i, tree: root}}

	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		var next []item
		for _, it := range level {
			for _, c := range g.nodes[it.idx].children {
				if _, seen := visited[c]; seen {
					continue
				}
				visited[c] = struct{}{}
				child := &Tree{ID: g.nodes[c].id, Level: depth}
				it.tree.Children = append(it.tree.Children, child)
				next = append(next, item{idx: c, tree: child})
			}
		}
		level = next
	}
	return root
}
