package bud

import (
	"fmt"
	"math"
	"slices"

	"github.com/soypat/growform"
	"github.com/soypat/growform/script"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	repelTrials    = 3
	disperseRounds = 25
	tubeHops       = 4
	maxTubeTries   = 1000
)

// Exec parses line and runs it as bud id's next command. An unknown cohort
// argument declares the cohort. Grow, sleep, general and blob set the bud's
// repeat counter without dividing.
func (c *Colony) Exec(id ID, line string) error {
	b := c.Bud(id)
	if b == nil {
		return fmt.Errorf("bud %d: %w", id, ErrNoBud)
	}
	cmd, err := script.Parse(line, script.DefaultTable, c.cohortNames())
	if name, ok := script.IsUnknownCohort(err); ok {
		c.AddCohort(name)
		cmd, err = script.Parse(line, script.DefaultTable, c.cohortNames())
	}
	if err != nil {
		return err
	}
	if c.setRepeat(b, cmd) {
		return nil
	}
	c.exec(b, cmd)
	return nil
}

// exec runs a command that does not start a repeat. It reports whether the
// bud's turn is over.
func (c *Colony) exec(b *Bud, cmd script.Command) (stop bool) {
	m := c.mesh
	cell := m.Cell(b.cell)
	switch cmd.Op {
	case script.OpNoop, script.OpStart:
	case script.OpFatness:
		b.fatness = max(cmd.Arg(0), 0)
	case script.OpSize:
		c.setSize(b, float64(cmd.Arg(0))/20)
	case script.OpLarger:
		c.setSize(b, cell.Radius+radiusStep)
	case script.OpSmaller:
		c.setSize(b, cell.Radius-radiusStep)
	case script.OpInwards:
		b.inward = true
	case script.OpOutwards:
		b.inward = false
	case script.OpUpwards:
		b.steer, b.heading = true, r3.Vec{Z: 1}
	case script.OpDownwards:
		b.steer, b.heading = true, r3.Vec{Z: -1}
	case script.OpRadial:
		b.steer, b.heading = true, cell.Pos
	case script.OpHeadTowards:
		b.steer, b.heading = true, argVec(cmd)
	case script.OpNoCollisionCheck:
		b.collide = false
	case script.OpFreeze:
		b.frozen = true
		return true
	case script.OpDie:
		c.destroy(b.id)
		return true
	case script.OpMustFace:
		if r3.Dot(m.Normal(b.cell), argVec(cmd)) <= 0 {
			c.destroy(b.id)
			return true
		}
	case script.OpFlat:
		cell.Texture = growform.TextureFlat
	case script.OpBump:
		cell.Texture = growform.TextureBump
	case script.OpSpike:
		cell.Texture = growform.TextureSpike
	case script.OpWeb:
		cell.Texture = growform.TextureWeb
	case script.OpHairy:
		cell.Texture = growform.TextureHairy
	case script.OpTexture:
		cell.Texture = growform.TextureFromInts(cmd.Arg(0), cmd.Arg(1), cmd.Arg(2))
	case script.OpColor:
		cell.Color = growform.RGB(cmd.Arg(0), cmd.Arg(1), cmd.Arg(2))
	case script.OpLine:
		if b.line == nil {
			l := newLine(b.cohort, cmd.Arg(0))
			l.members = []ID{b.id}
			b.line = l
		}
	case script.OpRing:
		c.ring(b, cmd.Cohort)
	case script.OpFill:
		for _, u := range m.Neighbors(b.cell) {
			c.Create(cmd.Cohort, u)
		}
	case script.OpSpawn:
		c.spawn(b, cmd.Cohort, false)
	case script.OpTrail:
		c.spawn(b, cmd.Cohort, true)
	case script.OpBecome:
		c.become(b, cmd.Cohort)
		return true
	case script.OpRepel:
		c.repel(b, cmd.Cohort)
	case script.OpDisperse:
		c.disperse(cmd.Cohort, cmd.Arg(0))
	case script.OpTube:
		c.tube(b)
	default:
		panic(fmt.Sprintf("bug: unhandled command %s", cmd.Name))
	}
	return false
}

func argVec(cmd script.Command) r3.Vec {
	return r3.Vec{X: float64(cmd.Arg(0)), Y: float64(cmd.Arg(1)), Z: float64(cmd.Arg(2))}
}

// setSize clamps r to the allowed radii and diffuses it around the bud's cell.
func (c *Colony) setSize(b *Bud, r float64) {
	c.mesh.SetRadius(b.cell, math.Min(MaxRadius, math.Max(MinRadius, r)))
}

// spawn places a bud of cohort t on the first free neighbor of b. A trailing
// spawn starts a line led by b.
func (c *Colony) spawn(b *Bud, t int, trail bool) {
	for _, u := range c.mesh.Neighbors(b.cell) {
		if c.mesh.Cell(u).Bud != 0 {
			continue
		}
		nb, ok := c.Create(t, u)
		if !ok {
			return
		}
		if trail {
			if b.trail != nil {
				b.trail.dropTrailee(b.id)
			}
			l := newLine(t, 0)
			l.trailer = true
			l.members = []ID{b.id, nb}
			c.buds[nb].line = l
			b.trail = l
		}
		return
	}
}

// become moves b into cohort t. The bud restarts at the top of t's segment
// with default settings and leaves any line or ring. A bud too close to a
// member of t dies instead.
func (c *Colony) become(b *Bud, t int) {
	cell := b.cell
	c.destroy(b.id)
	if _, ok := c.Create(t, cell); !ok {
		c.log.Debug("bud inhibited while changing cohort", "cell", cell, "cohort", c.cohorts[t].Name)
	}
}

// ring surrounds b with a ring of cohort t through the cells two hops away,
// replacing any buds there.
func (c *Colony) ring(b *Bud, t int) {
	m := c.mesh
	r := &Ring{cohort: t}
	for _, u := range ringCells(m, b.cell) {
		if id := ID(m.Cell(u).Bud); id != 0 {
			c.destroy(id)
		}
		if nb, ok := c.Create(t, u); ok {
			c.buds[nb].ring = r
			r.members = append(r.members, nb)
		}
	}
	c.log.Debug("ring formed", "bud", b.id, "members", len(r.members))
}

// ringCells returns the cells two hops from origin in cyclic order, each a
// neighbor of the next and the last a neighbor of the first. Around each
// neighbor u of origin, taken in rotation order, it lists the cells between
// the neighbors of origin preceding and following u. Loops in that walk are
// cut out.
func ringCells(m *growform.Mesh, origin int) []int {
	var raw []int
	for _, u := range m.Neighbors(origin) {
		adj := m.Neighbors(u)
		n := len(adj)
		start := slices.Index(adj, origin)
		step := 1
		if adj[(start+1)%n] != m.Prev(origin, u) {
			step = n - 1
		}
		for k := 1; k < n; k++ {
			v := adj[(start+k*step)%n]
			if m.IsNeighbor(origin, v) || (len(raw) > 0 && raw[len(raw)-1] == v) {
				continue
			}
			raw = append(raw, v)
		}
	}
	if len(raw) > 1 && raw[len(raw)-1] == raw[0] {
		raw = raw[:len(raw)-1]
	}
	walk := make([]int, 0, len(raw))
	at := make(map[int]int, len(raw))
	for _, v := range raw {
		if i, ok := at[v]; ok {
			for _, w := range walk[i+1:] {
				delete(at, w)
			}
			walk = walk[:i+1]
			continue
		}
		at[v] = len(walk)
		walk = append(walk, v)
	}
	return walk
}

// repel steps b onto free neighbors that lie farther from the nearest
// member of cohort t.
func (c *Colony) repel(b *Bud, t int) {
	m := c.mesh
	for trial := 0; trial < repelTrials; trial++ {
		old := b.cell
		best := -1
		bestDist := distOrMax(c.nearest(t, old, -1))
		for _, u := range m.Neighbors(old) {
			if m.Cell(u).Bud != 0 {
				continue
			}
			if d := distOrMax(c.nearest(t, u, old)); d >= bestDist {
				best, bestDist = u, d
			}
		}
		if best >= 0 {
			c.move(b.id, best)
		}
	}
}

func distOrMax(d int) int {
	if d < 0 {
		return math.MaxInt
	}
	return d
}

// disperse seeds n buds of cohort t on random free cells and spreads them
// apart.
func (c *Colony) disperse(t, n int) {
	m := c.mesh
	order := c.rng.Perm(m.Len())
	for _, u := range order {
		if n <= 0 {
			break
		}
		if !m.Alive(u) || m.Cell(u).Bud != 0 {
			continue
		}
		if _, ok := c.Create(t, u); ok {
			n--
		}
	}
	for round := 0; round < disperseRounds; round++ {
		for _, id := range c.cohorts[t].Members() {
			if b := c.buds[id]; b != nil {
				c.repel(b, t)
			}
		}
		m.RelaxRandom(c.rng, c.RelaxCount)
	}
}

// tube stitches a handle between two cells found by random walks from b.
func (c *Colony) tube(b *Bud) {
	m := c.mesh
	for try := 0; try < maxTubeTries; try++ {
		a := m.RandomWalk(b.cell, tubeHops, c.rng)
		z := m.RandomWalk(b.cell, tubeHops, c.rng)
		if m.Stitch(a, z) {
			c.log.Info("tube stitched", "bud", b.id, "genus", m.Genus())
			return
		}
	}
	c.log.Debug("tube found no stitchable pair", "bud", b.id)
}

// Repel moves bud id away from the nearest other member of cohort t.
func (c *Colony) Repel(id ID, t int) {
	if b := c.Bud(id); b != nil {
		c.repel(b, t)
	}
}
