// Package render exports grown forms as STL files and PNG previews.
package render

import (
	"io"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/growform"
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(t []r3.Triangle) (int, error)
}

// MeshRenderer streams the faces of a snapshot.
type MeshRenderer struct {
	snap growform.Snapshot
	next int
}

// NewMeshRenderer returns a Renderer over the triangles of snap.
func NewMeshRenderer(snap growform.Snapshot) *MeshRenderer {
	return &MeshRenderer{snap: snap}
}

func (r *MeshRenderer) ReadTriangles(t []r3.Triangle) (int, error) {
	tris := r.snap.Triangles
	if r.next >= len(tris) {
		return 0, io.EOF
	}
	n := 0
	for ; n < len(t) && r.next < len(tris); n++ {
		face := tris[r.next]
		for k, v := range face {
			t[n][k] = vec(r.snap.Positions[v])
		}
		r.next++
	}
	return n, nil
}

// Reset rewinds the renderer to the first triangle.
func (r *MeshRenderer) Reset() { r.next = 0 }

func vec(p ms3.Vec) r3.Vec {
	return r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}
