package bud

import (
	"slices"
)

// Line is an open chain of buds of one cohort. Divisions under a member may
// open a gap between consecutive members; the line closes it by moving the
// member or inserting a new one.
type Line struct {
	cohort int
	// target is the length the line is trimmed back to, 0 for no limit.
	target int
	// trailer is set when members[0] is a bud of another line or cohort
	// that the rest of the line follows.
	trailer bool
	members []ID
}

func newLine(cohort, target int) *Line {
	if target <= 1 {
		target = 0
	}
	return &Line{cohort: cohort, target: target}
}

// Members returns the line's buds in order.
func (l *Line) Members() []ID { return slices.Clone(l.members) }

func (l *Line) Len() int { return len(l.members) }

// Target returns the length the line is kept at, 0 when unbounded.
func (l *Line) Target() int { return l.target }

// Trailing reports whether the line follows a leading bud.
func (l *Line) Trailing() bool { return l.trailer }

func (l *Line) remove(id ID) {
	i := slices.Index(l.members, id)
	if i < 0 {
		return
	}
	l.members = slices.Delete(l.members, i, i+1)
	if i == 0 {
		l.trailer = false
	}
}

func (l *Line) dropTrailee(id ID) {
	if l.trailer && len(l.members) > 0 && l.members[0] == id {
		l.members = l.members[1:]
		l.trailer = false
	}
}

// maintain restores adjacency around the member hosted by oldC after oldC
// split off newC.
func (l *Line) maintain(c *Colony, oldC, newC int) {
	m := c.mesh
	id := ID(m.Cell(oldC).Bud)
	i := slices.Index(l.members, id)
	if i < 0 {
		panic("bug: line maintained from a non-member")
	}
	n := len(l.members)
	if n == 1 {
		if nb, ok := c.Create(l.cohort, newC); ok {
			c.buds[nb].line = l
			l.members = append(l.members, nb)
		}
		return
	}
	first, last := i == 0, i == n-1
	var next, prev int
	nextGap, prevGap := false, false
	if !last {
		next = c.buds[l.members[i+1]].cell
		nextGap = m.Hops(next, oldC) > 1
	}
	if !first {
		prev = c.buds[l.members[i-1]].cell
		prevGap = m.Hops(prev, oldC) > 1
	}
	if !nextGap && !prevGap {
		return
	}
	touches := (last || m.Hops(newC, next) == 1) && (first || m.Hops(newC, prev) == 1)
	growing := (first || last) && n < l.target
	if (nextGap && prevGap) || (touches && !(first && l.trailer) && !growing) {
		c.move(id, newC)
		return
	}
	nb, ok := c.Create(l.cohort, newC)
	if !ok {
		return
	}
	c.buds[nb].line = l
	at := i
	if nextGap {
		at = i + 1
	}
	l.members = slices.Insert(l.members, at, nb)
	if l.target > 0 && len(l.members) > l.target {
		victim := l.members[0]
		if l.trailer || c.rng.Intn(2) == 0 {
			victim = l.members[len(l.members)-1]
		}
		c.destroy(victim)
	}
}

// traileeSplit inserts a follower on newC when the leading bud has moved
// away from its first follower.
func (l *Line) traileeSplit(c *Colony, newC int) {
	if len(l.members) < 2 {
		return
	}
	lead, follower := c.buds[l.members[0]].cell, c.buds[l.members[1]].cell
	if c.mesh.Hops(lead, follower) <= 1 {
		return
	}
	if nb, ok := c.Create(l.cohort, newC); ok {
		c.buds[nb].line = l
		l.members = slices.Insert(l.members, 1, nb)
	}
}

// Ring is a closed cycle of buds of one cohort. It is maintained like a
// line but never trimmed.
type Ring struct {
	cohort  int
	members []ID
}

// Members returns the ring's buds in cyclic order.
func (r *Ring) Members() []ID { return slices.Clone(r.members) }

func (r *Ring) Len() int { return len(r.members) }

func (r *Ring) remove(id ID) {
	if i := slices.Index(r.members, id); i >= 0 {
		r.members = slices.Delete(r.members, i, i+1)
	}
}

func (r *Ring) maintain(c *Colony, oldC, newC int) {
	m := c.mesh
	id := ID(m.Cell(oldC).Bud)
	i := slices.Index(r.members, id)
	if i < 0 {
		panic("bug: ring maintained from a non-member")
	}
	n := len(r.members)
	next := c.buds[r.members[(i+1)%n]].cell
	prev := c.buds[r.members[(i+n-1)%n]].cell
	nextGap, prevGap := m.Hops(next, oldC) > 1, m.Hops(prev, oldC) > 1
	if !nextGap && !prevGap {
		return
	}
	if (nextGap && prevGap) || (m.Hops(newC, next) == 1 && m.Hops(newC, prev) == 1) {
		c.move(id, newC)
		return
	}
	nb, ok := c.Create(r.cohort, newC)
	if !ok {
		return
	}
	c.buds[nb].ring = r
	at := i
	if nextGap {
		at = i + 1
	}
	r.members = slices.Insert(r.members, at, nb)
}

// LineGaps counts consecutive members of l that are not neighbors.
func (c *Colony) LineGaps(l *Line) int { return c.gaps(l.members, false) }

// RingGaps counts cyclically consecutive members of r that are not neighbors.
func (c *Colony) RingGaps(r *Ring) int { return c.gaps(r.members, true) }

func (c *Colony) gaps(members []ID, cyclic bool) int {
	n := len(members)
	pairs := n - 1
	if cyclic && n > 2 {
		pairs = n
	}
	gaps := 0
	for i := 0; i < pairs; i++ {
		a, b := c.buds[members[i]].cell, c.buds[members[(i+1)%n]].cell
		if !c.mesh.IsNeighbor(a, b) {
			gaps++
		}
	}
	return gaps
}
