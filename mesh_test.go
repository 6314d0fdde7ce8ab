package growform_test

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/growform"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTetra(t testing.TB) *growform.Mesh {
	t.Helper()
	verts, adj := growform.Tetrahedron()
	m, err := growform.NewMesh(verts, adj, growform.DefaultRegionHops)
	if err != nil {
		t.Fatal(err)
	}
	m.Sphericalize()
	return m
}

// grow divides random live cells n times, placing both halves the way
// growth agents do.
func grow(m *growform.Mesh, rng *rand.Rand, n int) {
	for i := 0; i < n; i++ {
		c := m.RandomCell(rng)
		normal := m.Normal(c)
		sib := m.Divide(c)
		for _, cell := range [2]int{c, sib} {
			m.Cell(cell).Pos = r3.Add(m.AvgNeighbors(cell), r3.Scale(m.Cell(cell).Radius, normal))
		}
		m.RelaxNeighborhood(c)
		m.RelaxNeighborhood(sib)
	}
}

func directed(m *growform.Mesh) (total int) {
	for i := 0; i < m.Len(); i++ {
		total += m.Valence(i)
	}
	return total
}

func TestNewMeshSeedForms(t *testing.T) {
	for _, test := range []struct {
		name  string
		form  func() ([]r3.Vec, [][]int)
		edges int
		faces int
	}{
		{name: "tetrahedron", form: growform.Tetrahedron, edges: 6, faces: 4},
		{name: "bipyramid", form: growform.Bipyramid, edges: 9, faces: 6},
	} {
		verts, adj := test.form()
		m, err := growform.NewMesh(verts, adj, growform.DefaultRegionHops)
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if m.Edges() != test.edges || m.Faces() != test.faces {
			t.Errorf("%s: got E=%d F=%d, want E=%d F=%d", test.name, m.Edges(), m.Faces(), test.edges, test.faces)
		}
		if m.Genus() != 0 {
			t.Errorf("%s: genus %d", test.name, m.Genus())
		}
	}
}

func TestNewMeshRejects(t *testing.T) {
	verts, adj := growform.Tetrahedron()
	if _, err := growform.NewMesh(verts, adj, 2); err == nil {
		t.Error("accepted region radius 2")
	}
	if _, err := growform.NewMesh(verts[:3], adj, 4); err == nil {
		t.Error("accepted mismatched vertex count")
	}
	asym := [][]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2}}
	if _, err := growform.NewMesh(verts, asym, 4); err == nil {
		t.Error("accepted asymmetric adjacency")
	}
}

func TestDivideInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := newTetra(t)
	m.CheckInvariants(true)
	for i := 0; i < 300; i++ {
		c := m.RandomCell(rng)
		val := m.Valence(c)
		cells, edges, dir := m.Live(), m.Edges(), directed(m)
		sib := m.Divide(c)
		if m.Live() != cells+1 {
			t.Fatalf("divide %d: got %d cells, want %d", i, m.Live(), cells+1)
		}
		if m.Edges() != edges+3 || directed(m) != dir+6 {
			t.Fatalf("divide %d: got %d edges, want %d", i, m.Edges(), edges+3)
		}
		if got := m.Valence(c) + m.Valence(sib); got != val+4 {
			t.Fatalf("divide %d: split lists hold %d entries, want %d", i, got, val+4)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("divide %d: %v", i, err)
		}
	}
}

func TestDivideKeepsRotation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := newTetra(t)
	grow(m, rng, 40)
	for c := 0; c < m.Len(); c++ {
		for _, u := range m.Neighbors(c) {
			if m.Prev(c, m.Next(c, u)) != u {
				t.Fatalf("cell %d: prev(next(%d)) != %d", c, u, u)
			}
			// The face (c, u, next) must appear in u's rotation as (u, next, c).
			if m.Next(u, m.Next(c, u)) != c {
				t.Fatalf("cell %d: inconsistent orientation at neighbor %d", c, u)
			}
		}
	}
}

func TestNonNeighborPanics(t *testing.T) {
	m := newTetra(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	m.Next(0, 0)
}

func TestHops(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := newTetra(t)
	grow(m, rng, 120)
	R := m.RegionHops()
	for i := 0; i < 200; i++ {
		a, b := m.RandomCell(rng), m.RandomCell(rng)
		exact := m.HopsBFS(a, b)
		cached := m.Hops(a, b)
		switch {
		case exact <= R && cached != exact:
			t.Fatalf("hops(%d,%d): cached %d, exact %d", a, b, cached, exact)
		case exact > R && cached != R+1:
			t.Fatalf("hops(%d,%d): cached %d beyond horizon, want %d", a, b, cached, R+1)
		}
		if m.HopsBFS(b, a) != exact {
			t.Fatalf("hops(%d,%d) not symmetric", a, b)
		}
	}
}

func TestNearest(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	m := newTetra(t)
	grow(m, rng, 60)
	from := 0
	target := m.Neighbors(m.Neighbors(from)[0])[0]
	for target == from || m.IsNeighbor(from, target) {
		target = m.RandomWalk(target, 2, rng)
	}
	want := m.HopsBFS(from, target)
	got := m.Nearest(from, -1, func(c int) bool { return c == target })
	if got != want {
		t.Fatalf("nearest: got %d, want %d", got, want)
	}
	if got := m.Nearest(from, target, func(c int) bool { return c == target }); got != -1 {
		t.Fatalf("excluded cell matched at %d hops", got)
	}
	if got := m.Nearest(from, -1, func(c int) bool { return c == from }); got != -1 {
		t.Fatal("search origin matched")
	}
}

// stitchPair finds a pair of budless cells that Stitch accepts.
func stitchPair(m *growform.Mesh) (a, b int, ok bool) {
	for a = 0; a < m.Len(); a++ {
		for b = a + 1; b < m.Len(); b++ {
			if m.Alive(a) && m.Alive(b) && m.Valence(a) == m.Valence(b) && m.Hops(a, b) > m.RegionHops() {
				return a, b, true
			}
		}
	}
	return 0, 0, false
}

func TestStitch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := newTetra(t)
	grow(m, rng, 150)
	m.CheckInvariants(true)
	a, b, ok := stitchPair(m)
	if !ok {
		t.Fatal("no stitchable pair in grown mesh")
	}
	live := m.Live()
	if !m.Stitch(a, b) {
		t.Fatalf("stitch(%d,%d) refused", a, b)
	}
	if m.Genus() != 1 {
		t.Fatalf("got genus %d, want 1", m.Genus())
	}
	if m.Alive(a) || m.Alive(b) || m.Live() != live-2 {
		t.Fatal("stitched cells not removed")
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	remap := m.Compact()
	if remap[a] != -1 || remap[b] != -1 || m.Len() != live-2 || m.Removed() != 0 {
		t.Fatal("compaction kept stitched cells")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("after compaction: %v", err)
	}
	grow(m, rng, 50)
	if err := m.Validate(); err != nil {
		t.Fatalf("growth after stitch: %v", err)
	}
}

type meshState struct {
	adj  [][]int
	pos  []r3.Vec
	regs [][]int
}

func stateOf(m *growform.Mesh) meshState {
	var s meshState
	for i := 0; i < m.Len(); i++ {
		s.adj = append(s.adj, append([]int(nil), m.Neighbors(i)...))
		s.pos = append(s.pos, m.Cell(i).Pos)
		s.regs = append(s.regs, append([]int(nil), m.Region(i)...))
	}
	return s
}

func TestStitchRefuses(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m := newTetra(t)
	grow(m, rng, 80)
	before := stateOf(m)
	refused := 0
	for a := 0; a < m.Len(); a++ {
		for b := a + 1; b < m.Len(); b++ {
			mismatch := m.Valence(a) != m.Valence(b)
			near := m.HopsBFS(a, b) < m.RegionHops()
			if !mismatch && !near {
				continue
			}
			if m.Stitch(a, b) {
				t.Fatalf("stitch(%d,%d) accepted: valence %d/%d, hops %d", a, b, m.Valence(a), m.Valence(b), m.HopsBFS(a, b))
			}
			refused++
		}
	}
	if refused == 0 {
		t.Fatal("no refusals exercised")
	}
	if !reflect.DeepEqual(before, stateOf(m)) || m.Genus() != 0 {
		t.Fatal("refused stitch modified the mesh")
	}
	a, b, ok := stitchPair(m)
	if ok {
		m.Cell(a).Bud = 1
		if m.Stitch(a, b) {
			t.Fatal("stitched a cell hosting a bud")
		}
	}
}

func TestSmooth(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := newTetra(t)
	grow(m, rng, 30)
	id := m.Smooth(0)
	for i := range id {
		if id[i] != m.Cell(i).Pos {
			t.Fatalf("smooth(0) moved cell %d", i)
		}
	}
	one := m.Smooth(1)
	for i := range one {
		if want := m.AvgNeighbors(i); r3.Norm(r3.Sub(one[i], want)) > 1e-12 {
			t.Fatalf("smooth(1) cell %d: got %v, want %v", i, one[i], want)
		}
	}
	if !reflect.DeepEqual(id, m.Smooth(0)) {
		t.Fatal("smooth modified the mesh")
	}
}

func TestRelax(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	m := newTetra(t)
	grow(m, rng, 60)
	for i := 0; i < 20; i++ {
		c := m.RandomCell(rng)
		before := m.Cell(c).Pos
		m.Relax(c)
		after := m.Cell(c).Pos
		step := r3.Sub(after, before)
		for _, v := range []float64{step.X, step.Y, step.Z} {
			if math.IsNaN(v) || math.Abs(v) > 0.5+1e-12 {
				t.Fatalf("relax step %v out of bounds", step)
			}
		}
	}
	m.RelaxRandom(rng, 500)
	if err := m.Snapshot(0).Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestNormalOutward(t *testing.T) {
	m := newTetra(t)
	for c := 0; c < m.Len(); c++ {
		if r3.Dot(m.Normal(c), m.Cell(c).Pos) <= 0 {
			t.Errorf("cell %d normal points inward", c)
		}
	}
}

func TestSetRadius(t *testing.T) {
	m := newTetra(t)
	for c := 0; c < m.Len(); c++ {
		cell := m.Cell(c)
		if cell.Radius != growform.DefaultRadius || cell.Texture != growform.TextureBump || cell.Color != growform.DefaultColor {
			t.Fatalf("cell %d built with radius %g texture %+v color %+v", c, cell.Radius, cell.Texture, cell.Color)
		}
	}
	if growform.DefaultRadius != 0.5 {
		t.Errorf("default radius %g, want 0.5", growform.DefaultRadius)
	}
	m.SetRadius(0, 1.5)
	if m.Cell(0).Radius != 1.5 {
		t.Fatal("radius not set")
	}
	for _, u := range m.Neighbors(0) {
		if r := m.Cell(u).Radius; r != 1 {
			t.Errorf("neighbor %d radius %g, want 1", u, r)
		}
	}
}

func TestCollides(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := newTetra(t)
	grow(m, rng, 200)
	m.RelaxRandom(rng, 2000)
	c := 0
	if m.Collides(c, 1e-6) {
		t.Fatal("collision at zero tolerance")
	}
	var far int
	for far = 0; far < m.Len(); far++ {
		if !m.InRegion(c, far) {
			break
		}
	}
	if far == m.Len() {
		t.Fatal("region covers whole mesh")
	}
	m.Cell(far).Pos = r3.Add(m.Cell(c).Pos, r3.Vec{X: 0.01})
	if !m.Collides(c, 0.1) {
		t.Fatal("missed collision with a cell outside the region")
	}
}

func TestSnapshot(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	m := newTetra(t)
	grow(m, rng, 100)
	m.Cell(3).Color = growform.RGB(255, 0, 0)
	snap := m.Snapshot(2)
	if err := snap.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(snap.Positions) != m.Live() || len(snap.Triangles) != m.Faces() || len(snap.Edges) != m.Edges() {
		t.Fatalf("snapshot sizes V=%d F=%d E=%d", len(snap.Positions), len(snap.Triangles), len(snap.Edges))
	}
	if snap.Colors[3] != growform.RGB(255, 0, 0) {
		t.Fatal("snapshot color not copied")
	}
	snap.Colors[3] = growform.DefaultColor
	if m.Cell(3).Color != growform.RGB(255, 0, 0) {
		t.Fatal("snapshot aliases mesh")
	}
	v, e, f := len(snap.Positions), len(snap.Edges), len(snap.Triangles)
	if v-e+f != 2-2*snap.Genus {
		t.Fatalf("snapshot euler %d", v-e+f)
	}
	smoothed := m.Smooth(2)
	for k, cell := range snap.Cells {
		p := smoothed[cell]
		want := ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		if !ms3.EqualElem(snap.Positions[k], want, 1e-6) {
			t.Fatalf("vertex %d at %v, want %v", k, snap.Positions[k], want)
		}
	}
	snap.Positions[0].Y = float32(math.Inf(1))
	if snap.Validate() == nil {
		t.Fatal("infinite position validated")
	}
}

func TestTextureFromInts(t *testing.T) {
	for _, test := range []struct {
		a, b, c int
		want    growform.Texture
	}{
		{0, 10, 0, growform.Texture{Alpha: 0, Beta: 0.1, Gamma: 0}},
		{-500, 0, 500, growform.Texture{Alpha: -1, Beta: 0.01, Gamma: 1}},
		{50, 100, -25, growform.Texture{Alpha: 0.5, Beta: 0.99, Gamma: -0.25}},
	} {
		if got := growform.TextureFromInts(test.a, test.b, test.c); got != test.want {
			t.Errorf("texture(%d,%d,%d): got %+v, want %+v", test.a, test.b, test.c, got, test.want)
		}
	}
	if c := growform.RGB(300, -4, 255); c != (growform.Color{R: 1, G: 0, B: 1}) {
		t.Errorf("got color %+v", c)
	}
}
