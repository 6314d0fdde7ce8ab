package bud

import (
	"slices"
	"strings"
)

// Cohort is a named set of buds that run the same script segment.
type Cohort struct {
	Name string
	// Start and End delimit the cohort's commands in the program.
	Start, End int
	// Inhibit is the smallest hop distance allowed between two members.
	Inhibit int

	members []ID
}

// newCohort derives the inhibition distance from a trailing digit of name.
func newCohort(name string, start, end int) *Cohort {
	return &Cohort{Name: name, Start: start, End: end, Inhibit: inhibition(name)}
}

func inhibition(name string) int {
	if name == "" {
		return 0
	}
	if d := name[len(name)-1]; d >= '1' && d <= '9' {
		return int(d - '0')
	}
	return 0
}

// Len returns the number of live members, frozen or not.
func (t *Cohort) Len() int { return len(t.members) }

// Members returns the cohort's buds in creation order.
func (t *Cohort) Members() []ID { return slices.Clone(t.members) }

func (t *Cohort) remove(id ID) bool {
	i := slices.Index(t.members, id)
	if i < 0 {
		return false
	}
	t.members = slices.Delete(t.members, i, i+1)
	return true
}

func (c *Colony) cohortNames() []string {
	names := make([]string, len(c.cohorts))
	for i, t := range c.cohorts {
		names[i] = t.Name
	}
	return names
}

// CohortIndex returns the index of the named cohort, -1 if none.
// Names match case-insensitively.
func (c *Colony) CohortIndex(name string) int {
	for i, t := range c.cohorts {
		if strings.EqualFold(t.Name, name) {
			return i
		}
	}
	return -1
}

// AddCohort declares a cohort with no script segment and returns its index.
// Declaring an existing name returns the existing cohort.
func (c *Colony) AddCohort(name string) int {
	if i := c.CohortIndex(name); i >= 0 {
		return i
	}
	c.cohorts = append(c.cohorts, newCohort(name, 0, 0))
	c.log.Info("cohort declared", "name", name, "inhibit", c.cohorts[len(c.cohorts)-1].Inhibit)
	return len(c.cohorts) - 1
}

func (c *Colony) NumCohorts() int { return len(c.cohorts) }

func (c *Colony) Cohort(i int) *Cohort { return c.cohorts[i] }

// active counts the unfrozen members of cohort t.
func (c *Colony) active(t *Cohort) int {
	n := 0
	for _, id := range t.members {
		if !c.buds[id].frozen {
			n++
		}
	}
	return n
}

// nearest returns the hop distance from cell to the closest member of
// cohort t, never searching through exclude. It returns -1 when no member
// can be reached.
func (c *Colony) nearest(t int, cell, exclude int) int {
	return c.mesh.Nearest(cell, exclude, func(u int) bool {
		id := ID(c.mesh.Cell(u).Bud)
		return id != 0 && c.buds[id].cohort == t
	})
}

// Create places a new bud of cohort t on cell. It fails when the cell already
// hosts a bud or a member of t lies closer than the cohort's inhibition
// distance.
func (c *Colony) Create(t, cell int) (ID, bool) {
	co := c.cohorts[t]
	if c.mesh.Cell(cell).Bud != 0 {
		return 0, false
	}
	if co.Inhibit > 0 {
		if d := c.nearest(t, cell, -1); d >= 0 && d < co.Inhibit {
			return 0, false
		}
	}
	id := ID(len(c.buds))
	b := newBud(id, t, cell, co.Start)
	c.buds = append(c.buds, b)
	c.mesh.Cell(cell).Bud = int(id)
	co.members = append(co.members, id)
	c.live++
	return id, true
}

// Destroy removes the bud of cohort t hosted by cell. It panics if the cell
// hosts no member of t.
func (c *Colony) Destroy(t, cell int) {
	id := ID(c.mesh.Cell(cell).Bud)
	if id == 0 || c.buds[id].cohort != t {
		panic("bug: destroying a bud that is not a cohort member")
	}
	c.destroy(id)
}

func (c *Colony) destroy(id ID) {
	b := c.buds[id]
	if !c.cohorts[b.cohort].remove(id) {
		panic("bug: bud missing from its cohort")
	}
	if b.line != nil {
		b.line.remove(id)
		b.line = nil
	}
	if b.ring != nil {
		b.ring.remove(id)
		b.ring = nil
	}
	if b.trail != nil {
		b.trail.dropTrailee(id)
		b.trail = nil
	}
	c.mesh.Cell(b.cell).Bud = 0
	b.cell = -1
	c.buds[id] = nil
	c.live--
}

// move relocates bud id onto an empty cell.
func (c *Colony) move(id ID, cell int) {
	b := c.buds[id]
	if c.mesh.Cell(cell).Bud != 0 {
		panic("bug: moving a bud onto an occupied cell")
	}
	c.mesh.Cell(b.cell).Bud = 0
	c.mesh.Cell(cell).Bud = int(id)
	b.cell = cell
}

// ChooseNext picks the bud to act next. Cohorts are weighted by their
// number of unfrozen members, then an unfrozen member is drawn uniformly and
// asked for its division target. ChooseNext returns 0 when every bud is
// frozen or the drawn bud has no target.
func (c *Colony) ChooseNext() ID {
	total := 0
	for _, t := range c.cohorts {
		total += c.active(t)
	}
	if total == 0 {
		return 0
	}
	k := c.rng.Intn(total)
	for _, t := range c.cohorts {
		n := c.active(t)
		if k >= n {
			k -= n
			continue
		}
		return c.chooseIn(t)
	}
	panic("bug: cohort weights out of sync")
}

func (c *Colony) chooseIn(t *Cohort) ID {
	var b *Bud
	for b == nil || b.frozen {
		b = c.buds[t.members[c.rng.Intn(len(t.members))]]
	}
	b.chosen = c.choose(b)
	if b.chosen < 0 {
		return 0
	}
	return b.id
}
