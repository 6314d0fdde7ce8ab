package growform

import "gonum.org/v1/gonum/spatial/r3"

// Seed forms. Neighbor lists are counterclockwise seen from outside.

// Tetrahedron returns the vertices and neighbor lists of a regular tetrahedron.
func Tetrahedron() ([]r3.Vec, [][]int) {
	verts := []r3.Vec{
		{X: 1, Y: 1, Z: 1},
		{X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: 1},
		{X: 1, Y: -1, Z: -1},
	}
	adj := [][]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2, 1}}
	return verts, adj
}

// Bipyramid returns a five cell closed form: an apex over a square whose
// far side is closed by a diagonal.
func Bipyramid() ([]r3.Vec, [][]int) {
	verts := []r3.Vec{
		{Z: 1},
		{X: 1},
		{Y: 1},
		{X: -1},
		{Y: -1},
	}
	adj := [][]int{{1, 2, 3, 4}, {0, 4, 3, 2}, {0, 1, 3}, {0, 2, 1, 4}, {0, 3, 1}}
	return verts, adj
}
