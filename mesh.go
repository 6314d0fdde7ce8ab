// Package growform grows triangulated forms by repeatedly dividing cells of a
// closed mesh and relaxing it towards even edge lengths.
package growform

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/soypat/growform/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultRegionHops is the default radius of the cached hop-distance regions.
const DefaultRegionHops = 4

// minRegionHops is the smallest region radius a mesh accepts. Stitching
// relies on cached hop distances to tell apart rims closer than minStitchHops.
const minRegionHops = 3

// ErrBadTopology is returned when a mesh's adjacency does not describe a
// closed, consistently oriented triangulated manifold.
var ErrBadTopology = errors.New("bad topology")

// Mesh is a closed triangulated surface grown by dividing its cells.
//
// Cells are addressed by their index in the mesh. Indices are stable until
// Compact is called. Divide and Stitch are the only operations that change
// topology and each one leaves all invariants intact before returning.
type Mesh struct {
	cells   []Cell
	regionR int
	genus   int
	removed int
	births  int
	check   bool
}

// NewMesh builds a mesh from vertex positions and their counterclockwise
// neighbor lists. Regions are sized to regionR hops.
func NewMesh(verts []r3.Vec, adj [][]int, regionR int) (*Mesh, error) {
	if len(verts) != len(adj) {
		return nil, fmt.Errorf("%d vertices but %d neighbor lists: %w", len(verts), len(adj), ErrBadTopology)
	}
	if len(verts) < 4 {
		return nil, fmt.Errorf("closed mesh needs at least 4 vertices, got %d: %w", len(verts), ErrBadTopology)
	}
	if regionR < minRegionHops {
		return nil, fmt.Errorf("region radius %d below minimum %d", regionR, minRegionHops)
	}
	m := &Mesh{
		cells:   make([]Cell, len(verts)),
		regionR: regionR,
	}
	for i := range verts {
		for _, u := range adj[i] {
			if u < 0 || u >= len(verts) {
				return nil, fmt.Errorf("vertex %d neighbor %d out of range: %w", i, u, ErrBadTopology)
			}
		}
		m.cells[i] = Cell{
			Pos:     verts[i],
			Radius:  DefaultRadius,
			Color:   DefaultColor,
			Texture: DefaultTexture,
			id:      i,
			adj:     slices.Clone(adj[i]),
		}
	}
	m.births = len(verts)
	if err := m.initRegions(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckInvariants enables validation after every topology mutation.
// A failed validation panics.
func (m *Mesh) CheckInvariants(enable bool) { m.check = enable }

// Len returns the number of cell slots, including removed cells.
func (m *Mesh) Len() int { return len(m.cells) }

// Live returns the number of cells that have not been removed.
func (m *Mesh) Live() int { return len(m.cells) - m.removed }

// Removed returns the number of removed cells awaiting compaction.
func (m *Mesh) Removed() int { return m.removed }

// Alive reports whether cell i exists and has not been removed.
func (m *Mesh) Alive(i int) bool {
	return i >= 0 && i < len(m.cells) && !m.cells[i].removed
}

// Genus returns the number of handles stitched into the surface.
func (m *Mesh) Genus() int { return m.genus }

// RegionHops returns the radius of the cached regions.
func (m *Mesh) RegionHops() int { return m.regionR }

// Cell returns cell i. The pointer is invalidated by Divide and Compact.
func (m *Mesh) Cell(i int) *Cell { return &m.cells[i] }

// Neighbors returns the counterclockwise neighbor list of cell i.
// The returned slice must not be modified.
func (m *Mesh) Neighbors(i int) []int { return m.cells[i].adj }

// Valence returns the number of neighbors of cell i.
func (m *Mesh) Valence(i int) int { return len(m.cells[i].adj) }

// Region returns the cells within RegionHops of cell i in breadth-first order,
// starting with i. The returned slice must not be modified.
func (m *Mesh) Region(i int) []int { return m.cells[i].region.cells }

// IsNeighbor reports whether u is adjacent to c.
func (m *Mesh) IsNeighbor(c, u int) bool {
	return slices.Contains(m.cells[c].adj, u)
}

// Next returns the neighbor of c that follows u counterclockwise.
func (m *Mesh) Next(c, u int) int {
	adj := m.cells[c].adj
	return adj[(m.neighborIndex(c, u)+1)%len(adj)]
}

// Prev returns the neighbor of c that precedes u counterclockwise.
func (m *Mesh) Prev(c, u int) int {
	adj := m.cells[c].adj
	n := len(adj)
	return adj[(m.neighborIndex(c, u)+n-1)%n]
}

// Opposite returns the neighbor of c half way around the neighbor list from u.
func (m *Mesh) Opposite(c, u int) int {
	adj := m.cells[c].adj
	n := len(adj)
	return adj[(m.neighborIndex(c, u)+n/2)%n]
}

func (m *Mesh) neighborIndex(c, u int) int {
	k := slices.Index(m.cells[c].adj, u)
	if k < 0 {
		panic(fmt.Sprintf("bug: cell %d is not a neighbor of %d", u, c))
	}
	return k
}

// Normal returns the outward unit normal of cell c estimated from the
// cross products of consecutive neighbor offsets.
func (m *Mesh) Normal(c int) r3.Vec {
	cell := &m.cells[c]
	adj := cell.adj
	var sum r3.Vec
	prev := r3.Sub(m.cells[adj[len(adj)-1]].Pos, cell.Pos)
	for _, u := range adj {
		next := r3.Sub(m.cells[u].Pos, cell.Pos)
		sum = r3.Add(sum, r3.Cross(prev, next))
		prev = next
	}
	if r3.Norm2(sum) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(sum)
}

// AvgNeighbors returns the mean position of c and its neighbors.
func (m *Mesh) AvgNeighbors(c int) r3.Vec {
	cell := &m.cells[c]
	sum := cell.Pos
	for _, u := range cell.adj {
		sum = r3.Add(sum, m.cells[u].Pos)
	}
	return r3.Scale(1/float64(len(cell.adj)+1), sum)
}

// SetRadius sets the ideal radius of c and diffuses it half way into each neighbor.
func (m *Mesh) SetRadius(c int, r float64) {
	m.cells[c].Radius = r
	for _, u := range m.cells[c].adj {
		nb := &m.cells[u]
		nb.Radius = 0.5 * (r + nb.Radius)
	}
}

// RandomWalk returns the cell reached after k random hops from c.
func (m *Mesh) RandomWalk(c, k int, rng *rand.Rand) int {
	for i := 0; i < k; i++ {
		adj := m.cells[c].adj
		c = adj[rng.Intn(len(adj))]
	}
	return c
}

// RandomCell returns a live cell chosen uniformly at random.
func (m *Mesh) RandomCell(rng *rand.Rand) int {
	if m.Live() == 0 {
		return -1
	}
	for {
		if i := rng.Intn(len(m.cells)); !m.cells[i].removed {
			return i
		}
	}
}

// Center translates the mesh so the centroid of its live cells is the origin.
func (m *Mesh) Center() {
	pts := make(d3.Set, 0, m.Live())
	for i := range m.cells {
		if !m.cells[i].removed {
			pts = append(pts, m.cells[i].Pos)
		}
	}
	offset := pts.Centroid()
	for i := range m.cells {
		m.cells[i].Pos = r3.Sub(m.cells[i].Pos, offset)
	}
}

// Extent returns the size of the bounding box of the live cells.
func (m *Mesh) Extent() r3.Vec {
	pts := make(d3.Set, 0, m.Live())
	for i := range m.cells {
		if !m.cells[i].removed {
			pts = append(pts, m.cells[i].Pos)
		}
	}
	return d3.BoxOf(pts).Size()
}

// Sphericalize centers the mesh and projects every cell onto a sphere
// whose area grows linearly with the number of cells.
func (m *Mesh) Sphericalize() {
	m.Center()
	radius := math.Sqrt(float64(m.Live()) / 12)
	for i := range m.cells {
		c := &m.cells[i]
		if c.removed || r3.Norm2(c.Pos) == 0 {
			continue
		}
		c.Pos = r3.Scale(radius, r3.Unit(c.Pos))
	}
}

// Compact drops removed cells and renumbers the rest preserving order.
// The returned slice maps old indices to new ones, -1 for removed cells.
func (m *Mesh) Compact() []int {
	remap := make([]int, len(m.cells))
	k := 0
	for i := range m.cells {
		if m.cells[i].removed {
			remap[i] = -1
			continue
		}
		remap[i] = k
		k++
	}
	if m.removed == 0 {
		return remap
	}
	cells := make([]Cell, 0, k)
	for i := range m.cells {
		c := m.cells[i]
		if c.removed {
			continue
		}
		for j, u := range c.adj {
			c.adj[j] = remap[u]
		}
		reg := region{cells: make([]int, len(c.region.cells)), hops: make(map[int]int, len(c.region.hops))}
		for j, u := range c.region.cells {
			nu := remap[u]
			reg.cells[j] = nu
			reg.hops[nu] = c.region.hops[u]
		}
		c.region = reg
		cells = append(cells, c)
	}
	m.cells = cells
	m.removed = 0
	return remap
}

// newCell appends a cell that copies the attributes of parent.
func (m *Mesh) newCell(parent int) int {
	p := &m.cells[parent]
	m.cells = append(m.cells, Cell{
		Pos:     p.Pos,
		Radius:  p.Radius,
		Color:   p.Color,
		Texture: p.Texture,
		id:      m.births,
	})
	m.births++
	return len(m.cells) - 1
}

func (m *Mesh) removeCell(c int) {
	cell := &m.cells[c]
	if len(cell.adj) != 0 {
		panic(fmt.Sprintf("bug: removing cell %d with %d neighbors", c, len(cell.adj)))
	}
	if cell.Bud != 0 {
		panic(fmt.Sprintf("bug: removing cell %d hosting bud %d", c, cell.Bud))
	}
	cell.region = region{}
	cell.removed = true
	m.removed++
}

func (m *Mesh) mustLive(c int) {
	if !m.Alive(c) {
		panic(fmt.Sprintf("bug: cell %d is not alive", c))
	}
}

func (m *Mesh) invariants() {
	if !m.check {
		return
	}
	if err := m.Validate(); err != nil {
		panic(fmt.Errorf("bug: %w", err))
	}
}
