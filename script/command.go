// Package script parses the line-oriented growth language that programs buds.
//
// A script is a sequence of lines. A line holding a single word ending in a
// colon starts the segment of the cohort it names. Every other line is one
// command, matched against a command table by unique prefix:
//
//	start 200 3   / optional preamble: 200 cells, 3 initial buds
//	A:
//	size 20
//	grow 50       / 50 divisions around the bud
//	spawn B
//	B:
//	line 5
//	grow 100
package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Op identifies a command.
type Op int

const (
	OpNoop Op = iota
	OpGrow
	OpSleep
	OpGeneral
	OpBlob
	OpFatness
	OpSize
	OpLine
	OpRing
	OpFill
	OpSpawn
	OpTrail
	OpBecome
	OpRepel
	OpDisperse
	OpFreeze
	OpDie
	OpLarger
	OpSmaller
	OpInwards
	OpOutwards
	OpUpwards
	OpDownwards
	OpRadial
	OpHeadTowards
	OpMustFace
	OpNoCollisionCheck
	OpFlat
	OpBump
	OpSpike
	OpWeb
	OpHairy
	OpTexture
	OpColor
	OpTube
	OpStart
)

// Arity describes the arguments a command takes.
type Arity byte

const (
	ArityNone      Arity = '0' // no arguments
	ArityInt       Arity = '1' // one integer
	ArityTwoInts   Arity = '2' // two integers
	ArityThreeInts Arity = '3' // three integers
	ArityCohort    Arity = 'T' // one cohort name
	ArityCohortInt Arity = 'U' // one cohort name, then one integer
)

func (a Arity) ints() int {
	switch a {
	case ArityInt, ArityCohortInt:
		return 1
	case ArityTwoInts:
		return 2
	case ArityThreeInts:
		return 3
	}
	return 0
}

func (a Arity) hasCohort() bool { return a == ArityCohort || a == ArityCohortInt }

func (a Arity) String() string {
	switch a {
	case ArityNone:
		return "no arguments"
	case ArityInt:
		return "1 int"
	case ArityTwoInts:
		return "2 ints"
	case ArityThreeInts:
		return "3 ints"
	case ArityCohort:
		return "cohort"
	case ArityCohortInt:
		return "cohort and int"
	}
	return "arity(" + string(a) + ")"
}

// Spec declares one command of a table.
type Spec struct {
	Name  string
	Arity Arity
	Op    Op
}

// Table is the set of commands a line is matched against.
type Table []Spec

// Script errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrAmbiguous      = errors.New("ambiguous command")
	ErrArity          = errors.New("missing arguments")
	ErrExtraText      = errors.New("extra text")
	ErrNotInteger     = errors.New("not an integer")
	ErrUnknownCohort  = errors.New("unknown cohort")
	ErrBadPreamble    = errors.New("bad start preamble")
	ErrBadCohort      = errors.New("bad cohort declaration")
)

// UnknownCohortError reports a cohort argument that names no known cohort.
// Callers may declare the cohort and parse the line again.
type UnknownCohortError struct {
	Name string
}

func (e *UnknownCohortError) Error() string {
	return fmt.Sprintf("not a cohort: %s", e.Name)
}

func (e *UnknownCohortError) Unwrap() error { return ErrUnknownCohort }

// Command is one parsed script line.
type Command struct {
	Op   Op
	Name string
	Args []int
	// Cohort indexes the cohort list the line was parsed against, -1 if none.
	Cohort int
}

// Noop is the command of blank, comment and cohort declaration lines.
var Noop = Command{Op: OpNoop, Name: "noop", Cohort: -1}

// Arg returns the i'th integer argument or zero.
func (c Command) Arg(i int) int {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return 0
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.Cohort >= 0 {
		fmt.Fprintf(&b, " #%d", c.Cohort)
	}
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(a))
	}
	return b.String()
}
