package growform

import (
	"fmt"
	"slices"
)

// Edges returns the number of undirected edges between live cells.
func (m *Mesh) Edges() int {
	sum := 0
	for i := range m.cells {
		sum += len(m.cells[i].adj)
	}
	return sum / 2
}

// Faces returns the number of triangles in the rotation system. Each face is
// counted once, at its lowest index cell.
func (m *Mesh) Faces() int {
	faces := 0
	m.eachFace(func(a, b, c int) { faces++ })
	return faces
}

// eachFace calls fn with every face as seen from its lowest index cell, in
// counterclockwise order.
func (m *Mesh) eachFace(fn func(a, b, c int)) {
	for v1 := range m.cells {
		adj := m.cells[v1].adj
		if len(adj) == 0 {
			continue
		}
		v2 := adj[len(adj)-1]
		for _, v3 := range adj {
			if v1 < v2 && v1 < v3 {
				fn(v1, v2, v3)
			}
			v2 = v3
		}
	}
}

// Validate checks the mesh invariants: neighbor lists are simple and
// symmetric, consecutive neighbors close triangles, the Euler relation
// V - E + F = 2 - 2*genus holds, and every region equals the breadth-first
// ball recomputed from scratch.
func (m *Mesh) Validate() error {
	directed := 0
	for i := range m.cells {
		c := &m.cells[i]
		if c.removed {
			if len(c.adj) != 0 {
				return fmt.Errorf("removed cell %d has neighbors: %w", i, ErrBadTopology)
			}
			continue
		}
		n := len(c.adj)
		if n < 3 {
			return fmt.Errorf("cell %d has valence %d: %w", i, n, ErrBadTopology)
		}
		directed += n
		for k, u := range c.adj {
			switch {
			case u == i:
				return fmt.Errorf("cell %d lists itself: %w", i, ErrBadTopology)
			case !m.Alive(u):
				return fmt.Errorf("cell %d lists dead cell %d: %w", i, u, ErrBadTopology)
			case slices.Contains(c.adj[k+1:], u):
				return fmt.Errorf("cell %d lists %d twice: %w", i, u, ErrBadTopology)
			case !slices.Contains(m.cells[u].adj, i):
				return fmt.Errorf("cell %d lists %d but not the reverse: %w", i, u, ErrBadTopology)
			}
			next := c.adj[(k+1)%n]
			if !slices.Contains(m.cells[u].adj, next) {
				return fmt.Errorf("cell %d neighbors %d and %d do not close a face: %w", i, u, next, ErrBadTopology)
			}
		}
	}
	if directed%2 != 0 {
		return fmt.Errorf("odd directed adjacency count %d: %w", directed, ErrBadTopology)
	}
	v, e, f := m.Live(), directed/2, m.Faces()
	if chi := v - e + f; chi != 2-2*m.genus {
		return fmt.Errorf("euler characteristic V-E+F=%d-%d+%d=%d, want %d for genus %d: %w",
			v, e, f, chi, 2-2*m.genus, m.genus, ErrBadTopology)
	}
	for i := range m.cells {
		if m.cells[i].removed {
			continue
		}
		want := m.bfsRegion(i)
		got := m.cells[i].region
		if len(got.hops) != len(want.hops) || len(got.cells) != len(got.hops) {
			return fmt.Errorf("cell %d region holds %d cells, want %d: %w", i, len(got.hops), len(want.hops), ErrBadTopology)
		}
		for u, d := range want.hops {
			if gd, ok := got.hops[u]; !ok || gd != d {
				return fmt.Errorf("cell %d region has %d at %d hops, want %d: %w", i, u, gd, d, ErrBadTopology)
			}
		}
	}
	return nil
}
