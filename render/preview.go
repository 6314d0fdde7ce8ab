package render

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/growform"
)

// View places the preview camera. Distances are in bi-unit cube coordinates.
type View struct {
	Eye, Center, Up [3]float64
	Near, Far       float64
	// Fovy is the vertical field of view in degrees.
	Fovy float64
}

// DefaultView looks at the form from an oblique angle above.
var DefaultView = View{
	Eye:  [3]float64{3, 3, 2},
	Up:   [3]float64{0, 0, 1},
	Near: 1,
	Far:  10,
	Fovy: 30,
}

const previewSupersample = 2

// Preview rasterizes snap into a size by size image shaded with each cell's
// color. The form is scaled to fit the bi-unit cube.
func Preview(snap growform.Snapshot, size int, view View) (image.Image, error) {
	if len(snap.Triangles) == 0 {
		return nil, errors.New("snapshot has no triangles")
	}
	if size <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	tris := make([]*fauxgl.Triangle, len(snap.Triangles))
	for i, face := range snap.Triangles {
		p := snap.Positions
		t := fauxgl.NewTriangleForPoints(fv(p[face[0]]), fv(p[face[1]]), fv(p[face[2]]))
		t.V1.Color = fc(snap.Colors[face[0]])
		t.V2.Color = fc(snap.Colors[face[1]])
		t.V3.Color = fc(snap.Colors[face[2]])
		tris[i] = t
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	mesh.BiUnitCube()

	var (
		eye    = fauxgl.V(view.Eye[0], view.Eye[1], view.Eye[2])
		center = fauxgl.V(view.Center[0], view.Center[1], view.Center[2])
		up     = fauxgl.V(view.Up[0], view.Up[1], view.Up[2])
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(size*previewSupersample, size*previewSupersample)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.Fovy, 1, view.Near, view.Far)
	context.Shader = fauxgl.NewPhongShader(matrix, light, eye)
	context.DrawMesh(mesh)
	// Downsample for antialiasing.
	return resize.Resize(uint(size), uint(size), context.Image(), resize.Bilinear), nil
}

// SavePreview renders snap and writes it to a PNG file at path.
func SavePreview(path string, snap growform.Snapshot, size int, view View) error {
	img, err := Preview(snap, size, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fv(p ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(p.X), float64(p.Y), float64(p.Z))
}

func fc(c growform.Color) fauxgl.Color {
	return fauxgl.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: 1}
}
