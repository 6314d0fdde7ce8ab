package growform

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ kdtree.Interface = kdCells{}

// Collides reports whether a live cell outside the region of c lies
// within tol of c. Such a cell belongs to another part of the surface that
// has folded back close to c.
func (m *Mesh) Collides(c int, tol float64) bool {
	pts := make(kdCells, 0, m.Live())
	for i := range m.cells {
		if !m.cells[i].removed {
			pts = append(pts, kdCell{pos: m.cells[i].Pos, index: i})
		}
	}
	tree := kdtree.New(pts, false)
	keep := kdtree.NewDistKeeper(tol * tol)
	tree.NearestSet(keep, kdCell{pos: m.cells[c].Pos, index: c})
	for _, got := range keep.Heap {
		other, ok := got.Comparable.(kdCell)
		if !ok || other.index == c {
			continue
		}
		if !m.cells[c].region.contains(other.index) {
			return true
		}
	}
	return false
}

type kdCells []kdCell

type kdCell struct {
	pos   r3.Vec
	index int
}

func (k kdCells) Index(i int) kdtree.Comparable { return k[i] }

func (k kdCells) Len() int { return len(k) }

func (k kdCells) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), cells: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (k kdCells) Slice(start, end int) kdtree.Interface { return k[start:end] }

func (a kdCell) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a, b.(kdCell), int(d))
}

func (a kdCell) Dims() int { return 3 }

// Distance returns the squared euclidean distance.
func (a kdCell) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.pos, b.(kdCell).pos))
}

func kdComp(a, b kdCell, dim int) (c float64) {
	switch dim {
	case 0:
		c = a.pos.X - b.pos.X
	case 1:
		c = a.pos.Y - b.pos.Y
	case 2:
		c = a.pos.Z - b.pos.Z
	}
	return c
}

type kdPlane struct {
	dim   int
	cells kdCells
}

func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.cells[i], p.cells[j], p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.cells[i], p.cells[j] = p.cells[j], p.cells[i]
}
func (p kdPlane) Len() int {
	return len(p.cells)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.cells = p.cells[start:end]
	return p
}
