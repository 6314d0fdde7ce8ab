package growform

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

var _ graph.Undirected = meshGraph{}

// meshGraph is a read-only gonum graph view of the live cells of a mesh.
// Node IDs are cell indices.
type meshGraph struct {
	m *Mesh
}

// Graph returns an undirected gonum graph view of the mesh. The view is
// invalidated by any topology change.
func (m *Mesh) Graph() graph.Undirected { return meshGraph{m: m} }

func (g meshGraph) Node(id int64) graph.Node {
	if !g.m.Alive(int(id)) {
		return nil
	}
	return simple.Node(id)
}

func (g meshGraph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, 0, g.m.Live())
	for i := range g.m.cells {
		if !g.m.cells[i].removed {
			nodes = append(nodes, simple.Node(i))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g meshGraph) From(id int64) graph.Nodes {
	if !g.m.Alive(int(id)) {
		return graph.Empty
	}
	adj := g.m.cells[id].adj
	nodes := make([]graph.Node, len(adj))
	for i, u := range adj {
		nodes[i] = simple.Node(u)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g meshGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.m.Alive(int(xid)) && g.m.Alive(int(yid)) && g.m.IsNeighbor(int(xid), int(yid))
}

func (g meshGraph) Edge(uid, vid int64) graph.Edge {
	return g.EdgeBetween(uid, vid)
}

func (g meshGraph) EdgeBetween(xid, yid int64) graph.Edge {
	if !g.HasEdgeBetween(xid, yid) {
		return nil
	}
	return simple.Edge{F: simple.Node(xid), T: simple.Node(yid)}
}

// HopsBFS returns the exact, uncapped hop distance between a and b, or -1
// when b cannot be reached from a.
func (m *Mesh) HopsBFS(a, b int) int {
	if a == b {
		return 0
	}
	hops := -1
	var bf traverse.BreadthFirst
	bf.Walk(meshGraph{m: m}, simple.Node(a), func(n graph.Node, d int) bool {
		if int(n.ID()) == b {
			hops = d
			return true
		}
		return false
	})
	return hops
}

// Nearest searches outward from cell from and returns the hop distance to
// the closest other cell for which match returns true. The search never
// enters the exclude cell. Nearest returns -1 when no cell matches.
func (m *Mesh) Nearest(from, exclude int, match func(c int) bool) int {
	hops := -1
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool { return int(e.To().ID()) != exclude },
	}
	bf.Walk(meshGraph{m: m}, simple.Node(from), func(n graph.Node, d int) bool {
		c := int(n.ID())
		if c != from && match(c) {
			hops = d
			return true
		}
		return false
	})
	return hops
}
