// Package bud implements the growth agents that run scripts over a mesh.
//
// A bud lives on one cell and repeatedly picks a nearby cell to divide.
// Buds belong to cohorts. All buds of a cohort run the same script segment
// and are kept apart by the cohort's inhibition distance. Buds of a cohort
// may additionally be strung into open lines or closed rings whose
// neighboring members the colony keeps adjacent as the mesh grows.
package bud

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// ID is the handle of a bud in its colony. The zero ID means no bud.
type ID int

// Mode selects how a bud spends its repeat counter.
type Mode int

const (
	// ModeNormal divides cells near the bud.
	ModeNormal Mode = iota
	// ModeSleep waits without dividing.
	ModeSleep
	// ModeGeneral divides cells anywhere on the mesh to even out valences.
	ModeGeneral
	// ModeBlob divides like ModeGeneral and relaxes the whole mesh after each division.
	ModeBlob
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSleep:
		return "sleep"
	case ModeGeneral:
		return "general"
	case ModeBlob:
		return "blob"
	}
	return "mode?"
}

// Bud defaults and limits.
const (
	DefaultFatness = 1
	// CollisionDistance is the distance under which a cell outside the
	// candidate's region counts as a collision.
	CollisionDistance = 1.5
	MinRadius         = 0.2
	MaxRadius         = 1.8
	radiusStep        = 0.1
)

// Bud is a growth agent. Buds are owned by a Colony and addressed by ID.
type Bud struct {
	id     ID
	cohort int
	cell   int
	// pc indexes the next program command; repeat counts remaining divisions.
	pc     int
	repeat int
	mode   Mode
	frozen bool

	fatness int
	inward  bool
	collide bool
	steer   bool
	heading r3.Vec

	line  *Line
	ring  *Ring
	trail *Line
	// chosen is the division target picked by Colony.ChooseNext, -1 if none.
	chosen int
}

func newBud(id ID, cohort, cell, pc int) *Bud {
	return &Bud{
		id:      id,
		cohort:  cohort,
		cell:    cell,
		pc:      pc,
		fatness: DefaultFatness,
		collide: true,
		chosen:  -1,
	}
}

func (b *Bud) ID() ID { return b.id }

// Cell returns the index of the cell hosting the bud.
func (b *Bud) Cell() int { return b.cell }

// Cohort returns the index of the bud's cohort in its colony.
func (b *Bud) Cohort() int { return b.cohort }

// PC returns the index of the next command the bud will run.
func (b *Bud) PC() int { return b.pc }

// Repeat returns the number of pending grow, sleep or general actions.
func (b *Bud) Repeat() int { return b.repeat }

func (b *Bud) Mode() Mode { return b.mode }

// Frozen reports whether the bud stopped dividing for good.
func (b *Bud) Frozen() bool { return b.frozen }

func (b *Bud) Fatness() int { return b.fatness }

// Heading returns the steering direction and whether steering is on.
func (b *Bud) Heading() (r3.Vec, bool) { return b.heading, b.steer }

// Line returns the line the bud is a member of, or nil.
func (b *Bud) Line() *Line { return b.line }

// Ring returns the ring the bud is a member of, or nil.
func (b *Bud) Ring() *Ring { return b.ring }

// Trail returns the line the bud leads as its first member, or nil.
func (b *Bud) Trail() *Line { return b.trail }
