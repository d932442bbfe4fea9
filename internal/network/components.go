package network

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Summary describes the shape of a network.
type Summary struct {
	Segments      int     `json:"segments" msgpack:"segments"`
	Outlets       int     `json:"outlets" msgpack:"outlets"`
	BoundaryExits int     `json:"boundary_exits" msgpack:"boundary_exits"`
	Components    int     `json:"components" msgpack:"components"`
	Diversions    int     `json:"diversions" msgpack:"diversions"`
	TotalLength   float64 `json:"total_length_km" msgpack:"total_length_km"`
}

// Components returns the weakly connected components of the network. Each
// component is sorted ascending and components are ordered by their smallest
// identifier.
func (n *Network) Components() [][]int64 {
	g := simple.NewUndirectedGraph()
	for i := range n.segs {
		g.AddNode(simple.Node(i))
	}
	link := func(a, b int) {
		if a == b {
			return
		}
		g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
	}
	for i, d := range n.down {
		if d != none {
			link(i, int(d))
		}
		for _, j := range n.divDown[i] {
			link(i, int(j))
		}
	}

	var comps [][]int64
	for _, c := range topo.ConnectedComponents(g) {
		ids := make([]int64, len(c))
		for k, node := range c {
			ids[k] = n.segs[node.ID()].ID
		}
		slices.Sort(ids)
		comps = append(comps, ids)
	}
	slices.SortFunc(comps, func(a, b []int64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	return comps
}

// Summary counts segments, outlets and components.
func (n *Network) Summary() Summary {
	s := Summary{
		Segments:      len(n.segs),
		BoundaryExits: len(n.exits),
		Components:    len(n.Components()),
	}
	for i := range n.segs {
		if n.down[i] == none {
			s.Outlets++
		}
		if n.segs[i].Divergence.IsDiversion() {
			s.Diversions++
		}
		s.TotalLength += n.segs[i].Length
	}
	return s
}
