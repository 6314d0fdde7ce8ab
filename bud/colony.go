package bud

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/soypat/growform"
	"github.com/soypat/growform/script"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultRelaxCount is the number of random relaxations run by blob growth
// and by each disperse round.
const DefaultRelaxCount = 50

// ErrNoBud is returned when an ID names no living bud.
var ErrNoBud = errors.New("no such bud")

// Colony holds the buds growing a mesh and the program they run.
type Colony struct {
	// RelaxCount is the number of random relaxations used by blob growth and disperse.
	RelaxCount int

	mesh    *growform.Mesh
	prog    *script.Program
	cohorts []*Cohort
	// buds is indexed by ID. Slot 0 and the slots of dead buds are nil.
	buds []*Bud
	live int
	rng  *rand.Rand
	log  *slog.Logger
}

// NewColony returns a colony without buds that runs prog over m. It declares
// one cohort per program segment. A nil logger discards output.
func NewColony(m *growform.Mesh, prog *script.Program, rng *rand.Rand, log *slog.Logger) *Colony {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if prog == nil {
		prog = &script.Program{Start: script.DefaultPreamble}
	}
	c := &Colony{
		RelaxCount: DefaultRelaxCount,
		mesh:       m,
		prog:       prog,
		buds:       []*Bud{nil},
		rng:        rng,
		log:        log,
	}
	for _, seg := range prog.Segments {
		c.cohorts = append(c.cohorts, newCohort(seg.Name, seg.Start, seg.End))
	}
	return c
}

// Mesh returns the mesh the colony grows.
func (c *Colony) Mesh() *growform.Mesh { return c.mesh }

// Program returns the program the buds run.
func (c *Colony) Program() *script.Program { return c.prog }

// Bud returns the living bud with the given ID, or nil.
func (c *Colony) Bud(id ID) *Bud {
	if id <= 0 || int(id) >= len(c.buds) {
		return nil
	}
	return c.buds[id]
}

// Live returns the number of living buds.
func (c *Colony) Live() int { return c.live }

// Active returns the number of living buds that are not frozen.
func (c *Colony) Active() int {
	n := 0
	for _, t := range c.cohorts {
		n += c.active(t)
	}
	return n
}

// Buds returns the IDs of all living buds in creation order.
func (c *Colony) Buds() []ID {
	ids := make([]ID, 0, c.live)
	for _, b := range c.buds {
		if b != nil {
			ids = append(ids, b.id)
		}
	}
	return ids
}

// Act runs one turn of bud id. A bud with pending repeats spends one on a
// division, or on nothing while asleep. Otherwise it runs commands until one
// of them starts a repeat, the bud dies or its segment ends, at which point
// it freezes.
func (c *Colony) Act(id ID) {
	b := c.Bud(id)
	if b == nil {
		return
	}
	chosen := b.chosen
	b.chosen = -1
	if b.repeat > 0 {
		if chosen < 0 || !c.mesh.Alive(chosen) {
			chosen = c.choose(b)
		}
		if chosen < 0 {
			return
		}
		if b.mode != ModeSleep {
			c.divideChosen(b, chosen)
			if b.mode == ModeBlob {
				c.mesh.RelaxRandom(c.rng, c.RelaxCount)
			}
		}
		b.repeat--
		return
	}

	b.mode = ModeNormal
	end := c.cohorts[b.cohort].End
	// Every command either advances pc or ends the turn.
	for guard := 0; guard <= len(c.prog.Commands)+1; guard++ {
		if b.pc >= end {
			b.frozen = true
			c.log.Debug("bud froze at end of segment", "bud", b.id, "cohort", c.cohorts[b.cohort].Name)
			return
		}
		cmd := c.prog.Commands[b.pc]
		b.pc++
		if c.setRepeat(b, cmd) {
			return
		}
		if stop := c.exec(b, cmd); stop || c.buds[id] == nil {
			return
		}
	}
	panic("bug: bud ran past its segment")
}

// setRepeat starts a grow, sleep, general or blob repeat.
func (c *Colony) setRepeat(b *Bud, cmd script.Command) bool {
	switch cmd.Op {
	case script.OpGrow:
		b.mode = ModeNormal
	case script.OpSleep:
		b.mode = ModeSleep
	case script.OpGeneral:
		b.mode = ModeGeneral
	case script.OpBlob:
		b.mode = ModeBlob
	default:
		return false
	}
	b.repeat = max(cmd.Arg(0), 0)
	return true
}

// choose returns the cell bud b would divide next under its mode, -1 if none.
func (c *Colony) choose(b *Bud) int {
	switch b.mode {
	case ModeGeneral, ModeBlob:
		return c.generalCell()
	case ModeSleep:
		return b.cell
	}
	return c.chooseCell(b)
}

// chooseCell walks fatness hops away from b and prefers the walk's highest
// valence neighbor half of the time. Ring members are never chosen. A
// collision near the candidate freezes b.
func (c *Colony) chooseCell(b *Bud) int {
	if b.frozen {
		return -1
	}
	cand := c.mesh.RandomWalk(b.cell, b.fatness, c.rng)
	if c.rng.Intn(2) == 0 {
		best := cand
		for _, u := range c.mesh.Neighbors(cand) {
			if c.mesh.Valence(u) > c.mesh.Valence(best) {
				best = u
			}
		}
		cand = best
	}
	if id := c.mesh.Cell(cand).Bud; id != 0 && c.buds[id].ring != nil {
		return -1
	}
	if b.collide && c.mesh.Collides(cand, CollisionDistance) {
		b.frozen = true
		c.log.Debug("bud froze on collision", "bud", b.id, "cell", cand)
		return -1
	}
	return cand
}

// generalCell picks a division target that keeps valences near six.
func (c *Colony) generalCell() int {
	m := c.mesh
	var sevens, lows []int
	eight := -1
	for i := 0; i < m.Len(); i++ {
		if !m.Alive(i) {
			continue
		}
		switch v := m.Valence(i); {
		case v < 5:
			best := m.Neighbors(i)[0]
			for _, u := range m.Neighbors(i) {
				if m.Valence(u) > m.Valence(best) {
					best = u
				}
			}
			return best
		case v >= 8:
			if eight < 0 {
				eight = i
			}
		case v == 7:
			sevens = append(sevens, i)
		case v == 5:
			lows = append(lows, i)
		}
	}
	switch {
	case eight >= 0:
		return eight
	case len(sevens) > 0:
		return sevens[c.rng.Intn(len(sevens))]
	case len(lows) > 0:
		adj := m.Neighbors(lows[c.rng.Intn(len(lows))])
		return adj[c.rng.Intn(len(adj))]
	}
	return m.RandomCell(c.rng)
}

// divideChosen divides cell on behalf of b, places both halves on the
// surface and keeps lines, trails and rings connected.
func (c *Colony) divideChosen(b *Bud, cell int) {
	m := c.mesh
	normal := m.Normal(cell)
	sib := m.Divide(cell)
	home := m.Cell(b.cell)
	radius := home.Radius
	color, texture := home.Color, home.Texture
	owner := c.buds[m.Cell(cell).Bud]
	for _, u := range [2]int{cell, sib} {
		m.Cell(u).Radius = radius
	}
	if owner != nil {
		m.Cell(sib).Color = m.Cell(cell).Color
		m.Cell(sib).Texture = m.Cell(cell).Texture
	} else {
		for _, u := range [2]int{cell, sib} {
			m.Cell(u).Color, m.Cell(u).Texture = color, texture
		}
	}

	offset := r3.Scale(radius, normal)
	if b.inward {
		offset = r3.Scale(-1, offset)
	}
	avgCell, avgSib := m.AvgNeighbors(cell), m.AvgNeighbors(sib)
	m.Cell(cell).Pos = r3.Add(avgCell, offset)
	m.Cell(sib).Pos = r3.Add(avgSib, offset)
	for round := 0; round < 2; round++ {
		m.RelaxNeighborhood(cell)
		m.RelaxNeighborhood(sib)
	}

	if owner == b && b.line == nil && b.steer &&
		r3.Dot(m.Normal(sib), b.heading) > r3.Dot(m.Normal(cell), b.heading) {
		c.move(b.id, sib)
	}

	// Each repair may move the owner onto sib or fill sib, so the owner is
	// looked up again before the next one.
	if owner := c.ownerOf(cell, sib); owner != nil && owner.line != nil {
		owner.line.maintain(c, cell, sib)
	}
	if owner := c.ownerOf(cell, sib); owner == b && b.trail != nil {
		b.trail.traileeSplit(c, sib)
	}
	if owner := c.ownerOf(cell, sib); owner != nil && owner.ring != nil {
		owner.ring.maintain(c, cell, sib)
	}
}

// ownerOf returns the bud on cell while sib is still free, nil otherwise.
func (c *Colony) ownerOf(cell, sib int) *Bud {
	m := c.mesh
	if m.Cell(sib).Bud != 0 {
		return nil
	}
	return c.buds[m.Cell(cell).Bud]
}

// Remap rewrites cell indices after the mesh was compacted with the given
// old to new index map.
func (c *Colony) Remap(remap []int) {
	for _, b := range c.buds {
		if b == nil {
			continue
		}
		if remap[b.cell] < 0 {
			panic(fmt.Sprintf("bug: bud %d hosted by removed cell %d", b.id, b.cell))
		}
		b.cell = remap[b.cell]
		if b.chosen >= 0 {
			b.chosen = remap[b.chosen]
		}
	}
}

// Validate checks that buds, cells and cohorts agree on who lives where.
func (c *Colony) Validate() error {
	seen := 0
	for i := 0; i < c.mesh.Len(); i++ {
		id := ID(c.mesh.Cell(i).Bud)
		if id == 0 {
			continue
		}
		if !c.mesh.Alive(i) {
			return fmt.Errorf("removed cell %d hosts bud %d", i, id)
		}
		b := c.Bud(id)
		if b == nil || b.cell != i {
			return fmt.Errorf("cell %d hosts bud %d which is not there", i, id)
		}
		seen++
	}
	if seen != c.live {
		return fmt.Errorf("%d buds on cells, %d alive", seen, c.live)
	}
	members := 0
	for ti, t := range c.cohorts {
		for _, id := range t.members {
			if b := c.Bud(id); b == nil || b.cohort != ti {
				return fmt.Errorf("cohort %s lists bud %d which is not a member", t.Name, id)
			}
		}
		members += len(t.members)
	}
	if members != c.live {
		return fmt.Errorf("%d cohort members, %d alive", members, c.live)
	}
	return nil
}
