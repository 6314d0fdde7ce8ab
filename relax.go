package growform

import (
	"math/rand"

	"github.com/soypat/growform/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxRelaxStep bounds each axis of a single relaxation step.
const maxRelaxStep = 0.5

// Relax moves cell c one damped Newton step towards the minimum of a spring
// energy over its region. Each spring rests at the hop distance times the
// sum of both ideal radii. Singular systems leave the cell in place.
func (m *Mesh) Relax(c int) {
	cell := &m.cells[c]
	var grad r3.Vec
	hess := r3.NewMat(nil)
	outer := r3.NewMat(nil)
	for _, u := range cell.region.cells {
		if u == c {
			continue
		}
		other := &m.cells[u]
		rest := float64(cell.region.hops[u]) * (cell.Radius + other.Radius)
		delta := r3.Sub(cell.Pos, other.Pos)
		d := r3.Norm(delta)
		if d == 0 || rest == 0 {
			continue
		}
		k := 1 / rest
		stretch := 1 - rest/d
		grad = r3.Add(grad, r3.Scale(k*stretch, delta))
		outer.Outer(k*rest/(d*d*d), delta, delta)
		hess.Add(hess, outer)
		for i := 0; i < 3; i++ {
			hess.Set(i, i, hess.At(i, i)+k*stretch)
		}
	}
	step, ok := d3.Solve3(hess, grad)
	if !ok {
		return
	}
	step = d3.Clamp(step, d3.Elem(-maxRelaxStep), d3.Elem(maxRelaxStep))
	cell.Pos = r3.Sub(cell.Pos, step)
}

// RelaxNeighborhood relaxes every neighbor of c, then c itself.
func (m *Mesh) RelaxNeighborhood(c int) {
	for _, u := range m.cells[c].adj {
		m.Relax(u)
	}
	m.Relax(c)
}

// RelaxRandom relaxes n live cells chosen uniformly at random.
func (m *Mesh) RelaxRandom(rng *rand.Rand, n int) {
	if m.Live() == 0 {
		return
	}
	for i := 0; i < n; i++ {
		m.Relax(m.RandomCell(rng))
	}
}

// Smooth returns cell positions after k rounds of averaging each cell with
// its neighbors. The mesh is not modified. Removed cells keep their position.
func (m *Mesh) Smooth(k int) []r3.Vec {
	pos := make([]r3.Vec, len(m.cells))
	for i := range m.cells {
		pos[i] = m.cells[i].Pos
	}
	next := make([]r3.Vec, len(pos))
	for round := 0; round < k; round++ {
		for i := range m.cells {
			c := &m.cells[i]
			if c.removed {
				next[i] = pos[i]
				continue
			}
			sum := pos[i]
			for _, u := range c.adj {
				sum = r3.Add(sum, pos[u])
			}
			next[i] = r3.Scale(1/float64(len(c.adj)+1), sum)
		}
		pos, next = next, pos
	}
	return pos
}
