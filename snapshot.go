package growform

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

// Snapshot is a dense, read-only copy of the renderable state of a mesh.
// Vertex k of the snapshot is mesh cell Cells[k]. A snapshot never aliases
// mesh memory.
type Snapshot struct {
	Cells     []int
	Positions []ms3.Vec
	Colors    []Color
	Textures  []Texture
	Radii     []float32
	// Triangles index Positions in counterclockwise order seen from outside.
	Triangles [][3]int
	Edges     [][2]int
	Genus     int
}

// Snapshot copies the mesh's geometry and attributes. Positions are taken
// after smooth rounds of neighbor averaging.
func (m *Mesh) Snapshot(smooth int) Snapshot {
	pos := m.Smooth(smooth)
	dense := make([]int, len(m.cells))
	live := m.Live()
	snap := Snapshot{
		Cells:     make([]int, 0, live),
		Positions: make([]ms3.Vec, 0, live),
		Colors:    make([]Color, 0, live),
		Textures:  make([]Texture, 0, live),
		Radii:     make([]float32, 0, live),
		Edges:     make([][2]int, 0, m.Edges()),
		Genus:     m.genus,
	}
	for i := range m.cells {
		c := &m.cells[i]
		if c.removed {
			dense[i] = -1
			continue
		}
		dense[i] = len(snap.Cells)
		p := pos[i]
		snap.Cells = append(snap.Cells, i)
		snap.Positions = append(snap.Positions, ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)})
		snap.Colors = append(snap.Colors, c.Color)
		snap.Textures = append(snap.Textures, c.Texture)
		snap.Radii = append(snap.Radii, float32(c.Radius))
	}
	m.eachFace(func(a, b, c int) {
		snap.Triangles = append(snap.Triangles, [3]int{dense[a], dense[b], dense[c]})
	})
	for i := range m.cells {
		for _, u := range m.cells[i].adj {
			if i < u {
				snap.Edges = append(snap.Edges, [2]int{dense[i], dense[u]})
			}
		}
	}
	return snap
}

// Validate checks that every position is finite, every color is in range and
// every index refers to a vertex of the snapshot.
func (s Snapshot) Validate() error {
	n := len(s.Positions)
	if len(s.Colors) != n || len(s.Textures) != n || len(s.Cells) != n {
		return errors.New("snapshot attribute lengths differ")
	}
	for i, p := range s.Positions {
		if !finite(p) {
			return fmt.Errorf("vertex %d position %v not finite", i, p)
		}
		if !s.Colors[i].IsValid() {
			return fmt.Errorf("vertex %d color %v out of range", i, s.Colors[i])
		}
	}
	for i, t := range s.Triangles {
		for _, v := range t {
			if v < 0 || v >= n {
				return fmt.Errorf("triangle %d index %d out of range", i, v)
			}
		}
	}
	for i, e := range s.Edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return fmt.Errorf("edge %d index out of range", i)
		}
	}
	return nil
}

func finite(v ms3.Vec) bool {
	for _, f := range [3]float32{v.X, v.Y, v.Z} {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	return true
}
