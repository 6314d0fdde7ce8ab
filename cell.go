package growform

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is one vertex of the grown manifold. Topology (neighbors and the
// cached region) is owned by the Mesh and only reachable through it.
type Cell struct {
	// Pos is the cell's position.
	Pos r3.Vec
	// Radius is the ideal radius used to space cells during relaxation.
	Radius  float64
	Color   Color
	Texture Texture
	// Bud is the handle of the growth agent hosted by this cell. Zero means none.
	Bud int

	id      int
	adj     []int
	region  region
	removed bool
}

// ID returns the cell's birth order. It is unique and survives compaction.
func (c *Cell) ID() int { return c.id }

// region caches hop distances from its owner out to the mesh region radius.
type region struct {
	// cells lists every cell in the ball in breadth-first order, owner first.
	cells []int
	hops  map[int]int
}

func (r region) contains(c int) bool {
	_, ok := r.hops[c]
	return ok
}

// Color is a display color with channels in [0,1].
type Color struct {
	R, G, B float32
}

// RGB returns the color for 8 bit channel values. Values are clamped to 0..255.
func RGB(r, g, b int) Color {
	return Color{R: channel(r), G: channel(g), B: channel(b)}
}

func channel(v int) float32 {
	return math32.Min(1, math32.Max(0, float32(v)/255))
}

// IsValid reports whether every channel is a finite number in [0,1].
func (c Color) IsValid() bool {
	for _, v := range [3]float32{c.R, c.G, c.B} {
		if math32.IsNaN(v) || math32.IsInf(v, 0) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Texture holds the shape parameters of the bump rendered over a cell.
type Texture struct {
	Alpha, Beta, Gamma float64
}

// TextureFromInts scales percentages to texture parameters. Alpha and Gamma
// are clamped to [-1,1] and Beta to [0.01,0.99].
func TextureFromInts(a, b, c int) Texture {
	return Texture{
		Alpha: clampf(float64(a)/100, -1, 1),
		Beta:  clampf(float64(b)/100, 0.01, 0.99),
		Gamma: clampf(float64(c)/100, -1, 1),
	}
}

// Texture presets.
var (
	TextureFlat  = TextureFromInts(0, 10, 0)
	TextureBump  = TextureFromInts(10, 17, 20)
	TextureSpike = TextureFromInts(100, 60, 20)
	TextureWeb   = TextureFromInts(-30, 30, -30)
	TextureHairy = TextureFromInts(100, 90, 0)
)

// Defaults for freshly built cells.
var (
	DefaultColor   = RGB(255, 255, 0)
	DefaultTexture = TextureBump
	DefaultRadius  = 0.5
)

func clampf(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
