package bud

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/soypat/growform"
	"github.com/soypat/growform/script"
	"gonum.org/v1/gonum/spatial/r3"
)

func newColony(t testing.TB, form func() ([]r3.Vec, [][]int), src string, seed int64) *Colony {
	t.Helper()
	verts, adj := form()
	m, err := growform.NewMesh(verts, adj, growform.DefaultRegionHops)
	if err != nil {
		t.Fatal(err)
	}
	m.CheckInvariants(true)
	prog, err := script.Load(src)
	if err != nil {
		t.Fatal(err)
	}
	return NewColony(m, prog, rand.New(rand.NewSource(seed)), nil)
}

// growMesh divides random cells of c's mesh until it has n live cells.
func growMesh(c *Colony, n int) {
	m := c.mesh
	m.Sphericalize()
	for m.Live() < n {
		cell := m.RandomCell(c.rng)
		normal := m.Normal(cell)
		sib := m.Divide(cell)
		for _, u := range [2]int{cell, sib} {
			m.Cell(u).Pos = r3.Add(m.AvgNeighbors(u), r3.Scale(m.Cell(u).Radius, normal))
		}
		m.RelaxNeighborhood(cell)
		m.RelaxNeighborhood(sib)
	}
	m.RelaxRandom(c.rng, 20*n)
}

func mustValidate(t testing.TB, c *Colony) {
	t.Helper()
	if err := c.mesh.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestGrowOnce(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:\ngrow 1", 1)
	id, ok := c.Create(0, 0)
	if !ok {
		t.Fatal("create failed")
	}
	c.Act(id) // reads grow 1
	if c.mesh.Live() != 5 || c.Bud(id).Repeat() != 1 {
		t.Fatalf("after reading grow: %d cells, repeat %d", c.mesh.Live(), c.Bud(id).Repeat())
	}
	c.Act(id)
	if c.mesh.Live() != 6 {
		t.Fatalf("got %d cells, want 6", c.mesh.Live())
	}
	if c.mesh.Genus() != 0 {
		t.Fatalf("genus %d", c.mesh.Genus())
	}
	r := c.mesh.Cell(0).Radius
	for i := 0; i < c.mesh.Len(); i++ {
		if got := c.mesh.Cell(i).Radius; got != r {
			t.Errorf("cell %d radius %g, want %g", i, got, r)
		}
	}
	mustValidate(t, c)
	c.Act(id)
	if !c.Bud(id).Frozen() {
		t.Error("bud should freeze at the end of its segment")
	}
	if c.ChooseNext() != 0 {
		t.Error("frozen colony chose a bud")
	}
}

func TestCreateInhibition(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:\ngrow 1", 1)
	b3 := c.AddCohort("B3")
	if c.Cohort(b3).Inhibit != 3 {
		t.Fatalf("inhibition %d, want 3", c.Cohort(b3).Inhibit)
	}
	if _, ok := c.Create(b3, 0); !ok {
		t.Fatal("create on empty mesh failed")
	}
	if _, ok := c.Create(b3, 0); ok {
		t.Error("created on an occupied cell")
	}
	if _, ok := c.Create(b3, 1); ok {
		t.Error("created inside inhibition distance")
	}
	if _, ok := c.Create(0, 1); !ok {
		t.Error("uninhibited cohort refused a free cell")
	}
	mustValidate(t, c)
	defer func() {
		if recover() == nil {
			t.Error("destroying a non-member did not panic")
		}
	}()
	c.Destroy(0, 0)
}

func TestGeneralCell(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:", 1)
	// Cell 0 is the first cell below valence 5. Its neighbors 1 and 3 have
	// the highest valence and 1 comes first.
	if got := c.generalCell(); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestBecome(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:\nbecome B\nB:\nsleep 3", 1)
	id, _ := c.Create(0, 2)
	c.Act(id)
	if c.Bud(id) != nil {
		t.Fatal("old bud still alive")
	}
	if c.Cohort(0).Len() != 0 || c.Cohort(1).Len() != 1 {
		t.Fatalf("cohort sizes %d and %d", c.Cohort(0).Len(), c.Cohort(1).Len())
	}
	nb := c.Bud(ID(c.mesh.Cell(2).Bud))
	if nb == nil || nb.Cohort() != 1 || nb.PC() != c.Cohort(1).Start {
		t.Fatalf("cell 2 hosts %+v", nb)
	}
	mustValidate(t, c)
}

func TestExec(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:", 1)
	id, _ := c.Create(0, 0)
	if err := c.Exec(id, "spawn Zed"); err != nil {
		t.Fatal(err)
	}
	z := c.CohortIndex("zed")
	if z < 0 || c.Cohort(z).Len() != 1 {
		t.Fatalf("spawn did not declare cohort: index %d", z)
	}
	if err := c.Exec(id, "grow 5"); err != nil {
		t.Fatal(err)
	}
	if b := c.Bud(id); b.Repeat() != 5 || b.Mode() != ModeNormal {
		t.Errorf("repeat %d mode %v", b.Repeat(), b.Mode())
	}
	if err := c.Exec(id, "grow"); !errors.Is(err, script.ErrArity) {
		t.Errorf("got %v, want arity error", err)
	}
	if err := c.Exec(99, "grow 1"); !errors.Is(err, ErrNoBud) {
		t.Errorf("got %v, want ErrNoBud", err)
	}
	if err := c.Exec(id, "color 0 0 255"); err != nil {
		t.Fatal(err)
	}
	if got := c.mesh.Cell(0).Color; got != growform.RGB(0, 0, 255) {
		t.Errorf("color %+v", got)
	}
	if err := c.Exec(id, "size 30"); err != nil {
		t.Fatal(err)
	}
	if got := c.mesh.Cell(0).Radius; got != 1.5 {
		t.Errorf("radius %g, want 1.5", got)
	}
	if err := c.Exec(id, "size 100"); err != nil {
		t.Fatal(err)
	}
	if got := c.mesh.Cell(0).Radius; got != MaxRadius {
		t.Errorf("radius %g, want %g", got, MaxRadius)
	}
	mustValidate(t, c)
}

func TestMustFace(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:", 1)
	id, _ := c.Create(0, 0) // apex at +z
	c.Exec(id, "mustface 0 0 1")
	if c.Bud(id) == nil {
		t.Fatal("bud facing up died")
	}
	c.Exec(id, "mustface 0 0 -1")
	if c.Bud(id) != nil || c.Live() != 0 {
		t.Fatal("bud facing away survived")
	}
	mustValidate(t, c)
}

func TestBlobOneDivisionPerTurn(t *testing.T) {
	c := newColony(t, growform.Bipyramid, "A:\nblob 5\nfreeze", 4)
	id, _ := c.Create(0, 0)
	start := c.mesh.Live()
	for turn := 0; turn < 10 && !c.Bud(id).Frozen(); turn++ {
		before := c.mesh.Live()
		c.Act(id)
		if grown := c.mesh.Live() - before; grown > 1 {
			t.Fatalf("turn %d divided %d cells", turn, grown)
		}
	}
	if !c.Bud(id).Frozen() {
		t.Fatal("bud still active after blob")
	}
	if grown := c.mesh.Live() - start; grown != 5 {
		t.Errorf("blob 5 divided %d cells", grown)
	}
	mustValidate(t, c)
}

func TestLineStaysConnected(t *testing.T) {
	for _, test := range []struct {
		src    string
		target int
	}{
		{src: "A:\nline 3\nnocollisioncheck\ngrow 1000", target: 3},
		{src: "A:\nline 0\nfatness 0\nnocollisioncheck\ngrow 1000", target: 0},
	} {
		c := newColony(t, growform.Tetrahedron, test.src, 3)
		growMesh(c, 40)
		id, _ := c.Create(0, 0)
		c.Act(id)
		if l := c.Bud(id).Line(); l == nil || l.Target() != test.target {
			t.Fatalf("%q: line not formed with target %d", test.src, test.target)
		}
		longest := 0
		for step := 0; step < 300; step++ {
			next := c.ChooseNext()
			if next == 0 {
				continue
			}
			c.Act(next)
			for _, bid := range c.Buds() {
				l := c.Bud(bid).Line()
				if l == nil {
					continue
				}
				if test.target > 0 && l.Len() > test.target {
					t.Fatalf("%q step %d: line of %d exceeds target %d", test.src, step, l.Len(), test.target)
				}
				if gaps := c.LineGaps(l); gaps != 0 {
					t.Fatalf("%q step %d: line has %d gaps", test.src, step, gaps)
				}
				longest = max(longest, l.Len())
			}
		}
		if longest < 2 {
			t.Errorf("%q: line never grew", test.src)
		}
		mustValidate(t, c)
		t.Logf("%q: longest line %d over %d cells", test.src, longest, c.mesh.Live())
	}
}

func TestLineTrimsOneEnd(t *testing.T) {
	const seed = 13
	// Divide a reference copy of the mesh to learn which neighbors of the
	// middle cell end up next to the sibling only and which stay with it.
	ref := newColony(t, growform.Tetrahedron, "A:\nfreeze", seed)
	growMesh(ref, 40)
	mid := -1
	for i := 0; i < ref.mesh.Len(); i++ {
		if ref.mesh.Valence(i) >= 6 {
			mid = i
			break
		}
	}
	if mid < 0 {
		t.Fatal("no cell of valence 6 or more")
	}
	before := slices.Clone(ref.mesh.Neighbors(mid))
	refSib := ref.mesh.Divide(mid)
	var lost, kept []int
	for _, u := range before {
		switch {
		case !ref.mesh.IsNeighbor(mid, u):
			lost = append(lost, u)
		case !ref.mesh.IsNeighbor(refSib, u):
			kept = append(kept, u)
		}
	}
	if len(lost) == 0 || len(kept) == 0 {
		t.Fatalf("division of %d left lost=%v kept=%v", mid, lost, kept)
	}

	c := newColony(t, growform.Tetrahedron, "A:\nfreeze", seed)
	growMesh(c, 40)
	l := newLine(0, 3)
	for _, cell := range []int{lost[0], mid, kept[0]} {
		id, ok := c.Create(0, cell)
		if !ok {
			t.Fatalf("create on cell %d failed", cell)
		}
		c.buds[id].line = l
		l.members = append(l.members, id)
	}
	head, middle, tail := l.members[0], l.members[1], l.members[2]
	cells := c.mesh.Len()
	c.divideChosen(c.buds[middle], mid)
	sib := cells

	if l.Len() != 3 {
		t.Fatalf("line has %d members after trim, want 3", l.Len())
	}
	if gaps := c.LineGaps(l); gaps != 0 {
		t.Fatalf("line has %d gaps", gaps)
	}
	if c.Bud(middle) == nil || c.Bud(middle).Cell() != mid {
		t.Fatal("middle member moved or died")
	}
	if id := ID(c.mesh.Cell(sib).Bud); id == 0 || !slices.Contains(l.Members(), id) {
		t.Fatal("no member inserted on the sibling")
	}
	dead := 0
	for _, id := range []ID{head, tail} {
		if c.Bud(id) == nil {
			dead++
		}
	}
	if dead != 1 {
		t.Fatalf("%d end members destroyed, want 1", dead)
	}
	mustValidate(t, c)
}

func TestRingCellsCyclic(t *testing.T) {
	c := newColony(t, growform.Tetrahedron, "A:\ngrow 10", 2)
	growMesh(c, 60)
	m := c.mesh
	for origin := 0; origin < m.Len(); origin++ {
		cells := ringCells(m, origin)
		if len(cells) < 3 {
			t.Fatalf("cell %d: ring of %d cells", origin, len(cells))
		}
		seen := make(map[int]bool)
		for i, u := range cells {
			if seen[u] {
				t.Fatalf("cell %d: ring visits %d twice", origin, u)
			}
			seen[u] = true
			if h := m.HopsBFS(origin, u); h != 2 {
				t.Fatalf("cell %d: ring cell %d is %d hops away", origin, u, h)
			}
			if next := cells[(i+1)%len(cells)]; !m.IsNeighbor(u, next) {
				t.Fatalf("cell %d: ring cells %d and %d are not neighbors", origin, u, next)
			}
		}
	}
}

func TestRingStaysClosed(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		c := newColony(t, growform.Tetrahedron, "A:\nring B\nB:\ngeneral 1000", seed)
		growMesh(c, 60)
		id, _ := c.Create(0, 0)
		c.Act(id)
		var r *Ring
		for _, bid := range c.Buds() {
			if r = c.Bud(bid).Ring(); r != nil {
				break
			}
		}
		if r == nil || r.Len() < 3 {
			t.Fatalf("seed %d: ring not formed", seed)
		}
		if g := c.RingGaps(r); g != 0 {
			t.Fatalf("seed %d: new ring of %d has %d gaps", seed, r.Len(), g)
		}
		size := r.Len()
		for step := 0; step < 200; step++ {
			next := c.ChooseNext()
			if next == 0 {
				continue
			}
			c.Act(next)
			if g := c.RingGaps(r); g != 0 {
				t.Fatalf("seed %d step %d: ring has %d gaps", seed, step, g)
			}
			if r.Len() < size {
				t.Fatalf("seed %d step %d: ring shrank from %d to %d", seed, step, size, r.Len())
			}
			size = r.Len()
		}
		mustValidate(t, c)
	}
}

func TestRingMembersInLines(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		c := newColony(t, growform.Tetrahedron, "A:\nring B\nB:\nline 0\nnocollisioncheck\ngeneral 3000", seed)
		growMesh(c, 60)
		c.mesh.CheckInvariants(false)
		id, _ := c.Create(0, 0)
		c.Act(id)
		for step := 0; step < 800; step++ {
			if next := c.ChooseNext(); next != 0 {
				c.Act(next)
			}
		}
		mustValidate(t, c)
	}
}

func TestCollisionDistanceFixed(t *testing.T) {
	c := newColony(t, growform.Tetrahedron, "A:\ngrow 10", 17)
	growMesh(c, 300)
	m := c.mesh
	const home = 0
	far, farHops := -1, 0
	for i := 0; i < m.Len(); i++ {
		if h := m.HopsBFS(home, i); h > farHops {
			far, farHops = i, h
		}
	}
	// Candidates lie within two hops of home.
	if farHops <= m.RegionHops()+2 {
		t.Fatalf("farthest cell only %d hops away", farHops)
	}
	id, _ := c.Create(0, home)
	b := c.buds[id]
	m.SetRadius(home, MaxRadius)
	for _, test := range []struct {
		dist   float64
		frozen bool
	}{
		{dist: 2, frozen: false},
		{dist: 1, frozen: true},
	} {
		for i := 0; i < m.Len(); i++ {
			switch {
			case i == far:
				m.Cell(i).Pos = r3.Vec{X: test.dist}
			case m.HopsBFS(home, i) <= 2:
				m.Cell(i).Pos = r3.Vec{}
			default:
				m.Cell(i).Pos = r3.Vec{X: 100}
			}
		}
		b.frozen = false
		for try := 0; try < 20; try++ {
			cand := c.chooseCell(b)
			if (cand < 0) != test.frozen || b.frozen != test.frozen {
				t.Fatalf("far cell at %g: candidate %d, frozen %v", test.dist, cand, b.frozen)
			}
			b.frozen = false
		}
	}
}

func TestDisperse(t *testing.T) {
	c := newColony(t, growform.Tetrahedron, "A:", 7)
	growMesh(c, 30)
	id, _ := c.Create(0, 0)
	if err := c.Exec(id, "disperse B 5"); err != nil {
		t.Fatal(err)
	}
	b := c.CohortIndex("B")
	if got := c.Cohort(b).Len(); got != 5 {
		t.Errorf("dispersed %d buds, want 5", got)
	}
	mustValidate(t, c)
}

func TestTubeAndRemap(t *testing.T) {
	c := newColony(t, growform.Tetrahedron, "A:", 11)
	growMesh(c, 80)
	id, _ := c.Create(0, 0)
	c.Create(0, 40)
	if err := c.Exec(id, "tube"); err != nil {
		t.Fatal(err)
	}
	if c.mesh.Genus() != 1 {
		t.Fatalf("genus %d after tube", c.mesh.Genus())
	}
	c.Remap(c.mesh.Compact())
	if c.mesh.Removed() != 0 {
		t.Fatal("compaction left removed cells")
	}
	mustValidate(t, c)
}
