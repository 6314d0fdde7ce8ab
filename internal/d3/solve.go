package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// detEpsilon is the smallest determinant magnitude Solve3 accepts.
const detEpsilon = 1e-12

// Solve3 solves the 3x3 linear system a*x = b in closed form (Cramer's rule).
// ok is false when the system is singular or produces non-finite values.
func Solve3(a *r3.Mat, b r3.Vec) (x r3.Vec, ok bool) {
	det := a.Det()
	if math.IsNaN(det) || math.Abs(det) < detEpsilon {
		return r3.Vec{}, false
	}
	var sol [3]float64
	col := r3.NewMat(nil)
	for j := 0; j < 3; j++ {
		col.CloneFrom(a)
		col.Set(0, j, b.X)
		col.Set(1, j, b.Y)
		col.Set(2, j, b.Z)
		sol[j] = col.Det() / det
	}
	x = r3.Vec{X: sol[0], Y: sol[1], Z: sol[2]}
	return x, IsFinite(x)
}
