// Package orgtree builds and searches the organisation hierarchy shown in
// the dashboard's organisation picker.
package orgtree

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

type Node struct {
	ID       uint
	ParentID *uint
	Name     string
}

type Tree struct {
	ID       uint    `json:"id"`
	ParentID *uint   `json:"parent_id"`
	Name     string  `json:"name"`
	Children []*Tree `json:"children"`
}

var fold = cases.Fold()

func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := fold.String(nodes[i].Name), fold.String(nodes[j].Name)
		if a != b {
			return a < b
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Build assembles the forest. Nodes whose parent is missing become roots,
// and so does the first node reached of any parent cycle.
func Build(nodes []Node) []*Tree {
	byID := make(map[uint]bool, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = true
	}

	children := make(map[uint][]Node)
	var roots []Node
	for _, n := range nodes {
		if n.ParentID == nil || *n.ParentID == n.ID || !byID[*n.ParentID] {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}
	for id := range children {
		sortNodes(children[id])
	}
	sortNodes(roots)

	visited := make(map[uint]bool, len(nodes))
	var attach func(n Node) *Tree
	attach = func(n Node) *Tree {
		visited[n.ID] = true
		t := &Tree{ID: n.ID, ParentID: n.ParentID, Name: n.Name, Children: []*Tree{}}
		for _, c := range children[n.ID] {
			if !visited[c.ID] {
				t.Children = append(t.Children, attach(c))
			}
		}
		return t
	}

	forest := make([]*Tree, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, attach(r))
	}

	rest := append([]Node(nil), nodes...)
	sortNodes(rest)
	for _, n := range rest {
		if !visited[n.ID] {
			forest = append(forest, attach(n))
		}
	}
	return forest
}

// Filter keeps nodes whose name contains query (case-insensitive), their
// ancestors, and everything below a match. An empty query returns roots.
// The input is not modified.
func Filter(roots []*Tree, query string) []*Tree {
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return roots
	}

	var walk func(t *Tree) *Tree
	walk = func(t *Tree) *Tree {
		if strings.Contains(fold.String(t.Name), q) {
			return t
		}
		var kept []*Tree
		for _, c := range t.Children {
			if m := walk(c); m != nil {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			return nil
		}
		return &Tree{ID: t.ID, ParentID: t.ParentID, Name: t.Name, Children: kept}
	}

	out := []*Tree{}
	for _, r := range roots {
		if m := walk(r); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Flatten lists the forest depth-first.
func Flatten(roots []*Tree) []*Tree {
	var out []*Tree
	var walk func(ts []*Tree)
	walk = func(ts []*Tree) {
		for _, t := range ts {
			out = append(out, t)
			walk(t.Children)
		}
	}
	walk(roots)
	return out
}

// IDs returns the ids of every node in the forest.
func IDs(roots []*Tree) []uint {
	flat := Flatten(roots)
	ids := make([]uint, len(flat))
	for i, t := range flat {
		ids[i] = t.ID
	}
	return ids
}
