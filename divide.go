package growform

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// Divide splits cell c in two and returns the index of the new sibling.
// The sibling starts as a copy of c's attributes and position; callers place
// both cells afterwards.
//
// The neighbor list of c is cut between its lowest valence neighbor and the
// neighbor opposite to it. c keeps one arc, the sibling takes the other, and
// the two neighbors at the cut become adjacent to both.
func (m *Mesh) Divide(c int) int {
	m.mustLive(c)
	old := m.cells[c].adj
	n := len(old)
	if n < 3 {
		panic(fmt.Sprintf("bug: divide cell %d with %d neighbors", c, n))
	}
	minI, minVal := 0, math.MaxInt
	for i, u := range old {
		if v := len(m.cells[u].adj); v < minVal {
			minI, minVal = i, v
		}
	}
	oppI := (minI + n/2) % n
	if n%2 == 1 {
		next := (oppI + 1) % n
		if len(m.cells[old[next]].adj) < len(m.cells[old[oppI]].adj) {
			oppI = next
		}
	}
	sib := m.newCell(c)

	keep := (oppI - minI + n) % n
	cellAdj := make([]int, 0, keep+2)
	for i := 0; i <= keep; i++ {
		cellAdj = append(cellAdj, old[(minI+i)%n])
	}
	cellAdj = append(cellAdj, sib)
	sibAdj := make([]int, 0, n-keep+2)
	for i := 0; i <= n-keep; i++ {
		sibAdj = append(sibAdj, old[(oppI+i)%n])
	}
	sibAdj = append(sibAdj, c)
	m.cells[c].adj = cellAdj
	m.cells[sib].adj = sibAdj

	// Cut end sees sib before c, cut start sees it after.
	end := &m.cells[old[oppI]]
	j := slices.Index(end.adj, c)
	end.adj = slices.Insert(end.adj, j, sib)
	start := &m.cells[old[minI]]
	k := slices.Index(start.adj, c)
	start.adj = slices.Insert(start.adj, k+1, sib)
	for i := (oppI + 1) % n; i != minI; i = (i + 1) % n {
		nb := &m.cells[old[i]]
		nb.adj[slices.Index(nb.adj, c)] = sib
	}

	affected := m.cells[c].region.cells
	for _, u := range affected {
		m.rebuildRegion(u)
	}
	m.rebuildRegion(sib)
	m.invariants()
	return sib
}

// Stitch joins cells a and b into a tube, raising the genus by one. The rims
// of a and b are linked into an antiprism and a and b are removed.
//
// Stitch refuses, without touching the mesh, pairs of different valence,
// pairs closer than the region radius (or minStitchHops) and pairs where
// either cell hosts a bud. Refusals are expected and the caller retries
// with another pair.
func (m *Mesh) Stitch(a, b int) bool {
	m.mustLive(a)
	m.mustLive(b)
	if a == b {
		return false
	}
	ca, cb := &m.cells[a], &m.cells[b]
	n := len(ca.adj)
	if n != len(cb.adj) || ca.Bud != 0 || cb.Bud != 0 {
		return false
	}
	if m.Hops(a, b) < max(m.regionR, minStitchHops) {
		return false
	}
	rimA, rimB := ca.adj, cb.adj
	iA := closestTo(m, rimA, cb.Pos)
	iB := closestTo(m, rimB, m.cells[rimA[iA]].Pos)
	cycA := make([]int, n)
	cycB := make([]int, n)
	for i := 0; i < n; i++ {
		cycA[i] = rimA[(iA+i)%n]
		cycB[i] = rimB[(iB-i+n)%n]
	}
	// Regions of a and b cover every cell whose ball can change.
	affected := make([]int, 0, len(ca.region.cells)+len(cb.region.cells))
	seen := make(map[int]bool, cap(affected))
	for _, u := range append(slices.Clone(ca.region.cells), cb.region.cells...) {
		if u != a && u != b && !seen[u] {
			seen[u] = true
			affected = append(affected, u)
		}
	}

	for i := 0; i < n; i++ {
		u := &m.cells[cycA[i]]
		k := slices.Index(u.adj, a)
		u.adj[k] = cycB[(i-1+n)%n]
		u.adj = slices.Insert(u.adj, k, cycB[i])

		v := &m.cells[cycB[i]]
		k = slices.Index(v.adj, b)
		v.adj[k] = cycA[(i+1)%n]
		v.adj = slices.Insert(v.adj, k, cycA[i])
	}
	for _, u := range append(cycA, cycB...) {
		if m.IsNeighbor(u, a) || m.IsNeighbor(u, b) {
			panic(fmt.Sprintf("bug: rim cell %d still linked to stitched cells %d, %d", u, a, b))
		}
	}
	m.cells[a].adj = nil
	m.cells[b].adj = nil
	m.removeCell(a)
	m.removeCell(b)
	for _, u := range affected {
		m.rebuildRegion(u)
	}
	for round := 0; round < 3; round++ {
		for i := 0; i < n; i++ {
			m.Relax(cycA[i])
			m.Relax(cycB[i])
		}
	}
	m.genus++
	m.invariants()
	return true
}

// minStitchHops keeps the two rims of a stitch disjoint and non-adjacent.
const minStitchHops = 4

// closestTo returns the index in cells of the cell closest to p.
func closestTo(m *Mesh, cells []int, p r3.Vec) int {
	best, bestDist := 0, math.Inf(1)
	for i, u := range cells {
		if d := r3.Norm2(r3.Sub(m.cells[u].Pos, p)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
