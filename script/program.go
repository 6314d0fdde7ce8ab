package script

import (
	"errors"
	"fmt"
	"strings"
)

// Preamble holds the arguments of the optional first line "start cells buds".
type Preamble struct {
	Cells int
	Buds  int
}

// DefaultPreamble is used by scripts without a start line.
var DefaultPreamble = Preamble{Cells: 4, Buds: 1}

// Segment is the window [Start,End) of a program's commands run by one cohort.
type Segment struct {
	Name       string
	Start, End int
}

// Program is a loaded script.
type Program struct {
	Start Preamble
	// Lines are the script lines after separators and color words are expanded.
	Lines []string
	// Commands holds one command per line.
	Commands []Command
	// Segments lists cohorts in declaration order.
	Segments []Segment
}

// Cohorts returns the declared cohort names in order.
func (p *Program) Cohorts() []string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return names
}

// Error is a script error tied to the line it occurred on.
type Error struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// colorWords expand to a color command when used as a line's command word.
var colorWords = map[string]string{
	"red":    "color 255 0 0",
	"green":  "color 0 255 0",
	"blue":   "color 0 0 255",
	"yellow": "color 255 255 0",
	"orange": "color 255 128 0",
	"purple": "color 255 0 255",
	"violet": "color 255 0 255",
	"white":  "color 255 255 255",
	"black":  "color 32 32 32",
	"gray":   "color 128 128 128",
	"grey":   "color 128 128 128",
}

// Load parses a whole script. Semicolons and commas separate lines like
// newlines do. Load stops at the first error, which is an *Error.
func Load(src string) (*Program, error) {
	src = strings.NewReplacer(";", "\n", ",", "\n", "\r", "").Replace(src)
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = expandColor(line)
	}
	p := &Program{
		Start:    DefaultPreamble,
		Lines:    lines,
		Commands: make([]Command, len(lines)),
	}
	startLine := -1
	if words := fields(lines[0]); len(words) > 0 && strings.EqualFold(words[0], "start") {
		cmd, err := Parse(lines[0], startTable, nil)
		if err != nil {
			return nil, &Error{Line: 1, Text: lines[0], Err: err}
		}
		p.Start = Preamble{Cells: cmd.Args[0], Buds: cmd.Args[1]}
		if p.Start.Cells < p.Start.Buds || p.Start.Buds < 1 {
			return nil, &Error{Line: 1, Text: lines[0], Err: fmt.Errorf("%w: %d cells cannot hold %d buds", ErrBadPreamble, p.Start.Cells, p.Start.Buds)}
		}
		startLine = 0
	}

	for i, line := range lines {
		words := fields(line)
		if len(words) != 1 || !isHeader(words[0]) {
			continue
		}
		name := strings.TrimSuffix(words[0], ":")
		if name == "" || resolve(name, p.Cohorts()) >= 0 {
			return nil, &Error{Line: i + 1, Text: line, Err: fmt.Errorf("%w: %q", ErrBadCohort, name)}
		}
		if n := len(p.Segments); n > 0 {
			p.Segments[n-1].End = i
		}
		p.Segments = append(p.Segments, Segment{Name: name, Start: i + 1, End: len(lines)})
	}

	cohorts := p.Cohorts()
	for i, line := range lines {
		if i == startLine {
			p.Commands[i] = Noop
			continue
		}
		cmd, err := Parse(line, DefaultTable, cohorts)
		if err != nil {
			return nil, &Error{Line: i + 1, Text: line, Err: err}
		}
		p.Commands[i] = cmd
	}
	return p, nil
}

func expandColor(line string) string {
	words := fields(line)
	if len(words) != 1 {
		return line
	}
	if cmd, ok := colorWords[strings.ToLower(words[0])]; ok {
		return cmd
	}
	return line
}

// IsUnknownCohort reports whether err was caused by an undeclared cohort and
// returns its name.
func IsUnknownCohort(err error) (string, bool) {
	var uc *UnknownCohortError
	if errors.As(err, &uc) {
		return uc.Name, true
	}
	return "", false
}
