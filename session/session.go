// Package session drives the growth of one form: it seeds a mesh from a
// script's preamble and steps its buds, serializing every mutation so
// snapshots can be taken from other goroutines.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/soypat/growform"
	"github.com/soypat/growform/bud"
	"github.com/soypat/growform/script"
)

const (
	// seedRounds of repel and relaxation spread the initial buds.
	seedRounds = 10
	// maxIdle consecutive steps without an acting bud end a run.
	maxIdle = 1000
)

// ErrNoCohort is returned for scripts that declare no cohort for the initial buds.
var ErrNoCohort = errors.New("script declares no cohort")

// Options configures a session.
type Options struct {
	Seed            int64
	RegionHops      int
	RelaxPerStep    int
	CheckInvariants bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Seed:         1,
		RegionHops:   growform.DefaultRegionHops,
		RelaxPerStep: bud.DefaultRelaxCount,
	}
}

// Session owns a mesh and the colony growing it. All methods are safe for
// concurrent use.
type Session struct {
	mu     sync.Mutex
	id     uuid.UUID
	opts   Options
	mesh   *growform.Mesh
	colony *bud.Colony
	rng    *rand.Rand
	log    *slog.Logger
	steps  int
}

// Stats summarizes the state of a session.
type Stats struct {
	ID      string        `json:"id"`
	Steps   int           `json:"steps"`
	Cells   int           `json:"cells"`
	Edges   int           `json:"edges"`
	Faces   int           `json:"faces"`
	Genus   int           `json:"genus"`
	Extent  [3]float64    `json:"extent"`
	Buds    int           `json:"buds"`
	Active  int           `json:"active"`
	Cohorts []CohortStats `json:"cohorts"`
}

type CohortStats struct {
	Name string `json:"name"`
	Buds int    `json:"buds"`
}

// New loads src and seeds its initial form: a tetrahedron grown into a blob
// of the preamble's cell count by the first bud, with the remaining initial
// buds placed on the first cells and spread apart.
func New(src string, opts Options, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RegionHops == 0 {
		opts.RegionHops = growform.DefaultRegionHops
	}
	prog, err := script.Load(src)
	if err != nil {
		return nil, err
	}
	if len(prog.Segments) == 0 {
		return nil, ErrNoCohort
	}
	verts, adj := growform.Tetrahedron()
	m, err := growform.NewMesh(verts, adj, opts.RegionHops)
	if err != nil {
		return nil, err
	}
	m.CheckInvariants(opts.CheckInvariants)
	m.Sphericalize()

	s := &Session{
		id:   uuid.New(),
		opts: opts,
		mesh: m,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
	s.log = log.With("session", s.id.String())
	s.colony = bud.NewColony(m, prog, s.rng, s.log)
	s.colony.RelaxCount = opts.RelaxPerStep

	first, _ := s.colony.Create(0, 0)
	if grow := prog.Start.Cells - m.Live(); grow > 0 {
		if err := s.colony.Exec(first, fmt.Sprintf("blob %d", grow)); err != nil {
			return nil, err
		}
		for s.colony.Bud(first).Repeat() > 0 {
			s.colony.Act(first)
		}
	}
	for cell := 1; cell < prog.Start.Buds; cell++ {
		if _, ok := s.colony.Create(0, cell); !ok {
			s.log.Debug("initial bud inhibited", "cell", cell)
		}
	}
	for round := 0; round < seedRounds; round++ {
		for _, id := range s.colony.Cohort(0).Members() {
			s.colony.Repel(id, 0)
		}
		m.RelaxRandom(s.rng, opts.RelaxPerStep)
	}
	s.log.Info("session seeded", "cells", m.Live(), "buds", s.colony.Live())
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id.String() }

// Step centers the form, lets one bud act and relaxes the mesh. It returns
// the bud that acted, 0 if none could.
func (s *Session) Step() bud.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step()
}

func (s *Session) step() bud.ID {
	s.mesh.Center()
	id := s.colony.ChooseNext()
	if id != 0 {
		s.colony.Act(id)
		s.steps++
	}
	s.mesh.RelaxRandom(s.rng, s.opts.RelaxPerStep)
	s.compact()
	return id
}

// stepActive steps the session unless every bud is frozen.
func (s *Session) stepActive() (bud.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.colony.Active() == 0 {
		return 0, false
	}
	return s.step(), true
}

func (s *Session) compact() {
	if s.mesh.Removed() > 0 {
		s.colony.Remap(s.mesh.Compact())
	}
}

// Run steps the session until n buds have acted, every bud is frozen, no bud
// could act for a long streak of steps, or ctx is done. It returns the
// number of steps in which a bud acted.
func (s *Session) Run(ctx context.Context, n int) (int, error) {
	acted, idle := 0, 0
	for acted < n {
		if err := ctx.Err(); err != nil {
			return acted, err
		}
		id, ok := s.stepActive()
		if !ok {
			break
		}
		if id == 0 {
			idle++
			if idle >= maxIdle {
				s.log.Debug("run stalled", "idle", idle)
				break
			}
			continue
		}
		idle = 0
		acted++
	}
	s.log.Info("run finished", "acted", acted, "cells", s.Stats().Cells)
	return acted, nil
}

// Exec runs line on the index'th bud of the named cohort.
func (s *Session) Exec(cohort string, index int, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.colony.CohortIndex(cohort)
	if t < 0 {
		return fmt.Errorf("%w: %s", script.ErrUnknownCohort, cohort)
	}
	members := s.colony.Cohort(t).Members()
	if index < 0 || index >= len(members) {
		return fmt.Errorf("cohort %s has %d buds, no bud %d: %w", cohort, len(members), index, bud.ErrNoBud)
	}
	if err := s.colony.Exec(members[index], line); err != nil {
		return err
	}
	s.compact()
	return nil
}

// Snapshot returns a copy of the current geometry with k rounds of smoothing.
func (s *Session) Snapshot(k int) growform.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesh.Snapshot(k)
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		ID:     s.id.String(),
		Steps:  s.steps,
		Cells:  s.mesh.Live(),
		Edges:  s.mesh.Edges(),
		Faces:  s.mesh.Faces(),
		Genus:  s.mesh.Genus(),
		Buds:   s.colony.Live(),
		Active: s.colony.Active(),
	}
	ext := s.mesh.Extent()
	st.Extent = [3]float64{ext.X, ext.Y, ext.Z}
	for i := 0; i < s.colony.NumCohorts(); i++ {
		t := s.colony.Cohort(i)
		st.Cohorts = append(st.Cohorts, CohortStats{Name: t.Name, Buds: t.Len()})
	}
	return st
}

// Validate checks the mesh and colony invariants.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mesh.Validate(); err != nil {
		return err
	}
	return s.colony.Validate()
}
