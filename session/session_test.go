package session

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/soypat/growform/bud"
	"github.com/soypat/growform/script"
)

const testScript = `start 30 3
A:
size 18
grow 20
spawn B
B:
line 4
grow 20
`

func testOptions() Options {
	opts := DefaultOptions()
	opts.CheckInvariants = true
	opts.RelaxPerStep = 10
	return opts
}

func TestNewSeedsBlob(t *testing.T) {
	s, err := New(testScript, testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	st := s.Stats()
	if st.Cells < 30 {
		t.Errorf("seeded %d cells, want at least 30", st.Cells)
	}
	if st.Buds != 3 || st.Cohorts[0].Buds != 3 {
		t.Errorf("seeded %d buds, want 3", st.Buds)
	}
	if st.Genus != 0 {
		t.Errorf("genus %d", st.Genus)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New("start 2 3\nA:", testOptions(), nil)
	if !errors.Is(err, script.ErrBadPreamble) {
		t.Errorf("got %v, want bad preamble", err)
	}
	_, err = New("grow 3", testOptions(), nil)
	if !errors.Is(err, ErrNoCohort) {
		t.Errorf("got %v, want ErrNoCohort", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() *Session {
		s, err := New(testScript, testOptions(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Run(context.Background(), 60); err != nil {
			t.Fatal(err)
		}
		if err := s.Validate(); err != nil {
			t.Fatal(err)
		}
		return s
	}
	a, b := run(), run()
	sa, sb := a.Snapshot(0), b.Snapshot(0)
	if !reflect.DeepEqual(sa, sb) {
		t.Fatal("equal seeds grew different forms")
	}
	if err := sa.Validate(); err != nil {
		t.Fatal(err)
	}
	if a.ID() == b.ID() {
		t.Error("sessions share an ID")
	}
}

func TestRunStopsWhenFrozen(t *testing.T) {
	s, err := New("A:\ngrow 3", testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	acted, err := s.Run(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	// Reading grow, three divisions, then freezing at the end of the segment.
	if acted > 5 {
		t.Errorf("acted %d times", acted)
	}
	if st := s.Stats(); st.Active != 0 {
		t.Errorf("%d buds still active", st.Active)
	}
}

func TestRunRingOfLines(t *testing.T) {
	opts := testOptions()
	opts.CheckInvariants = false
	s, err := New("start 60 1\nA:\nring B\nB:\nline 0\nnocollisioncheck\ngeneral 3000", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	acted, err := s.Run(context.Background(), 600)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	st := s.Stats()
	if acted == 0 || st.Cohorts[1].Buds < 3 {
		t.Errorf("acted %d, ring cohort has %d buds", acted, st.Cohorts[1].Buds)
	}
}

func TestRunCancelled(t *testing.T) {
	s, err := New(testScript, testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	acted, err := s.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) || acted != 0 {
		t.Errorf("got %d, %v", acted, err)
	}
}

func TestExec(t *testing.T) {
	s, err := New(testScript, testOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Exec("a", 0, "spawn C"); err != nil {
		t.Fatal(err)
	}
	st := s.Stats()
	if len(st.Cohorts) != 3 || st.Cohorts[2].Name != "C" || st.Cohorts[2].Buds != 1 {
		t.Errorf("cohorts after spawn: %+v", st.Cohorts)
	}
	if err := s.Exec("A", 7, "freeze"); !errors.Is(err, bud.ErrNoBud) {
		t.Errorf("got %v, want ErrNoBud", err)
	}
	if err := s.Exec("Q", 0, "freeze"); !errors.Is(err, script.ErrUnknownCohort) {
		t.Errorf("got %v, want unknown cohort", err)
	}
	if err := s.Exec("A", 0, "frobnicate"); !errors.Is(err, script.ErrUnknownCommand) {
		t.Errorf("got %v, want unknown command", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
}
