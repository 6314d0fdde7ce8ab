package script

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTable holds every command a bud can run.
var DefaultTable = Table{
	{"grow", ArityInt, OpGrow},
	{"sleep", ArityInt, OpSleep},
	{"fatness", ArityInt, OpFatness},
	{"size", ArityInt, OpSize},
	{"line", ArityInt, OpLine},
	{"ring", ArityCohort, OpRing},
	{"fill", ArityCohort, OpFill},
	{"spawn", ArityCohort, OpSpawn},
	{"trail", ArityCohort, OpTrail},
	{"become", ArityCohort, OpBecome},
	{"repel", ArityCohort, OpRepel},
	{"noop", ArityNone, OpNoop},
	{"freeze", ArityNone, OpFreeze},
	{"larger", ArityNone, OpLarger},
	{"smaller", ArityNone, OpSmaller},
	{"inwards", ArityNone, OpInwards},
	{"outwards", ArityNone, OpOutwards},
	{"die", ArityNone, OpDie},
	{"upwards", ArityNone, OpUpwards},
	{"downwards", ArityNone, OpDownwards},
	{"radial", ArityNone, OpRadial},
	{"nocollisioncheck", ArityNone, OpNoCollisionCheck},
	{"general", ArityInt, OpGeneral},
	{"flat", ArityNone, OpFlat},
	{"spike", ArityNone, OpSpike},
	{"bump", ArityNone, OpBump},
	{"web", ArityNone, OpWeb},
	{"hairy", ArityNone, OpHairy},
	{"texture", ArityThreeInts, OpTexture},
	{"color", ArityThreeInts, OpColor},
	{"mustface", ArityThreeInts, OpMustFace},
	{"headtowards", ArityThreeInts, OpHeadTowards},
	{"blob", ArityInt, OpBlob},
	{"disperse", ArityCohortInt, OpDisperse},
	{"tube", ArityNone, OpTube},
}

var startTable = Table{{"start", ArityTwoInts, OpStart}}

// Lookup returns the unique command whose name starts with word.
func (t Table) Lookup(word string) (Spec, error) {
	word = strings.ToLower(word)
	var found []Spec
	for _, s := range t {
		if strings.HasPrefix(s.Name, word) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownCommand, word)
	case 1:
		return found[0], nil
	}
	names := make([]string, len(found))
	for i, s := range found {
		names[i] = s.Name
	}
	return Spec{}, fmt.Errorf("%w: %s could be %s", ErrAmbiguous, word, strings.Join(names, ", "))
}

// Parse parses one line against table. Cohort arguments resolve
// case-insensitively against cohorts. Blank lines, comments and cohort
// declarations parse as Noop.
func Parse(line string, table Table, cohorts []string) (Command, error) {
	words := fields(line)
	if len(words) == 0 || (len(words) == 1 && isHeader(words[0])) {
		return Noop, nil
	}
	spec, err := table.Lookup(words[0])
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Op: spec.Op, Name: spec.Name, Cohort: -1}
	args := words[1:]
	if spec.Arity.hasCohort() {
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: %s required after %s", ErrArity, spec.Arity, spec.Name)
		}
		cmd.Cohort = resolve(args[0], cohorts)
		if cmd.Cohort < 0 {
			return Command{}, &UnknownCohortError{Name: args[0]}
		}
		args = args[1:]
	}
	want := spec.Arity.ints()
	if len(args) < want {
		return Command{}, fmt.Errorf("%w: %s required after %s", ErrArity, spec.Arity, spec.Name)
	}
	if len(args) > want {
		return Command{}, fmt.Errorf("%w after %s: %s", ErrExtraText, spec.Name, strings.Join(args[want:], " "))
	}
	if want > 0 {
		cmd.Args = make([]int, want)
	}
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s", ErrNotInteger, a)
		}
		cmd.Args[i] = v
	}
	return cmd, nil
}

// fields splits a line into words after dropping its comment.
func fields(line string) []string {
	if i := strings.IndexByte(line, '/'); i >= 0 {
		line = line[:i]
	}
	return strings.Fields(line)
}

func isHeader(word string) bool {
	return strings.HasSuffix(word, ":")
}

func resolve(name string, cohorts []string) int {
	for i, c := range cohorts {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
