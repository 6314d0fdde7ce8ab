package growform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
)

// Hops returns the cached hop distance from a to b. Cells beyond the
// region radius R report R+1.
func (m *Mesh) Hops(a, b int) int {
	if d, ok := m.cells[a].region.hops[b]; ok {
		return d
	}
	return m.regionR + 1
}

// InRegion reports whether b lies within the cached region of a.
func (m *Mesh) InRegion(a, b int) bool {
	return m.cells[a].region.contains(b)
}

// initRegions fills every region from all-pairs shortest paths.
// Regions are ordered by hop distance, then by index.
func (m *Mesh) initRegions() error {
	all, ok := path.FloydWarshall(meshGraph{m})
	if !ok {
		return fmt.Errorf("negative cycle in hop graph: %w", ErrBadTopology)
	}
	for i := range m.cells {
		if m.cells[i].removed {
			continue
		}
		reg := region{hops: make(map[int]int)}
		for j := range m.cells {
			if m.cells[j].removed {
				continue
			}
			w := all.Weight(int64(i), int64(j))
			if math.IsInf(w, 1) {
				return fmt.Errorf("cells %d and %d are disconnected: %w", i, j, ErrBadTopology)
			}
			if d := int(w); d <= m.regionR {
				reg.hops[j] = d
				reg.cells = append(reg.cells, j)
			}
		}
		sort.SliceStable(reg.cells, func(a, b int) bool {
			return reg.hops[reg.cells[a]] < reg.hops[reg.cells[b]]
		})
		m.cells[i].region = reg
	}
	return nil
}

// rebuildRegion recomputes the region of c by breadth-first search over the
// current adjacency.
func (m *Mesh) rebuildRegion(c int) {
	m.cells[c].region = m.bfsRegion(c)
}

func (m *Mesh) bfsRegion(c int) region {
	prev := len(m.cells[c].region.cells)
	reg := region{
		cells: make([]int, 1, prev+1),
		hops:  make(map[int]int, prev+1),
	}
	reg.cells[0] = c
	reg.hops[c] = 0
	for head := 0; head < len(reg.cells); head++ {
		u := reg.cells[head]
		d := reg.hops[u]
		if d == m.regionR {
			continue
		}
		for _, v := range m.cells[u].adj {
			if _, seen := reg.hops[v]; !seen {
				reg.hops[v] = d + 1
				reg.cells = append(reg.cells, v)
			}
		}
	}
	return reg
}
