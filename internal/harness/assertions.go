package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/ecsgen/internal/engine"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Units    []string // emitted identities, for context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	if len(e.Units) > 0 {
		fmt.Fprintf(&buf, "\n\nEmitted units:\n")
		for _, id := range e.Units {
			fmt.Fprintf(&buf, "  %s\n", id)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// passCounters reads the pass_count fields from a report.
var passCounters = map[string]func(*engine.PassReport) int{
	"declarations":  func(r *engine.PassReport) int { return r.Declarations },
	"reused":        func(r *engine.PassReport) int { return r.Reused },
	"extracted":     func(r *engine.PassReport) int { return r.Extracted },
	"added":         func(r *engine.PassReport) int { return r.Added },
	"updated":       func(r *engine.PassReport) int { return r.Updated },
	"unchanged":     func(r *engine.PassReport) int { return r.Unchanged },
	"removed":       func(r *engine.PassReport) int { return r.Removed },
	"malformed":     func(r *engine.PassReport) int { return r.Malformed },
	"facts":         func(r *engine.PassReport) int { return r.Facts },
	"diagnostics":   func(r *engine.PassReport) int { return len(r.Diagnostics) },
	"units":         func(r *engine.PassReport) int { return r.Units },
	"changed":       func(r *engine.PassReport) int { return r.Changed },
	"removed_units": func(r *engine.PassReport) int { return r.RemovedUnits },
	"rendered":      func(r *engine.PassReport) int { return r.Rendered },
	"hits":          func(r *engine.PassReport) int { return r.Hits },
	"failures":      func(r *engine.PassReport) int { return len(r.Failures) },
}

// state is what assertions look at after one pass.
type state struct {
	units  map[string]string
	failed map[string]bool
	report *engine.PassReport
}

func (s *state) identities() []string {
	ids := make([]string, 0, len(s.units))
	for id := range s.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func evaluate(s *state, a Assertion) error {
	switch a.Type {
	case AssertUnitExists:
		return assertUnitExists(s, a)
	case AssertUnitAbsent:
		return assertUnitAbsent(s, a)
	case AssertUnitContains:
		return assertUnitContains(s, a)
	case AssertUnitFailed:
		return assertUnitFailed(s, a)
	case AssertUnitCount:
		return assertUnitCount(s, a)
	case AssertMalformed:
		return assertMalformed(s, a)
	case AssertPassCount:
		return assertPassCount(s, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertUnitExists(s *state, a Assertion) error {
	if _, ok := s.units[a.Unit]; ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitExists,
		Expected: "unit " + a.Unit,
		Actual:   "not emitted",
		Units:    s.identities(),
	}
}

func assertUnitAbsent(s *state, a Assertion) error {
	if _, ok := s.units[a.Unit]; !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitAbsent,
		Expected: "no unit " + a.Unit,
		Actual:   "emitted",
	}
}

func assertUnitContains(s *state, a Assertion) error {
	text, ok := s.units[a.Unit]
	if !ok {
		return &AssertionError{
			Type:     AssertUnitContains,
			Expected: "unit " + a.Unit,
			Actual:   "not emitted",
			Units:    s.identities(),
		}
	}
	var missing []string
	for _, want := range a.Text {
		if !strings.Contains(text, want) {
			missing = append(missing, fmt.Sprintf("%q", want))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitContains,
		Expected: fmt.Sprintf("%s to contain %s", a.Unit, strings.Join(missing, ", ")),
		Actual:   "\n" + text,
	}
}

func assertUnitFailed(s *state, a Assertion) error {
	if s.failed[a.Unit] {
		return nil
	}
	actual := "not emitted"
	if _, ok := s.units[a.Unit]; ok {
		actual = "rendered successfully"
	}
	return &AssertionError{
		Type:     AssertUnitFailed,
		Expected: "failure unit " + a.Unit,
		Actual:   actual,
	}
}

func assertUnitCount(s *state, a Assertion) error {
	if len(s.units) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitCount,
		Expected: fmt.Sprintf("%d units", a.Count),
		Actual:   fmt.Sprintf("%d units", len(s.units)),
		Units:    s.identities(),
	}
}

func assertMalformed(s *state, a Assertion) error {
	var names []string
	for _, me := range s.report.Malformations {
		if me.Declaration == a.Declaration {
			return nil
		}
		names = append(names, me.Declaration)
	}
	return &AssertionError{
		Type:     AssertMalformed,
		Expected: "malformed declaration " + a.Declaration,
		Actual:   fmt.Sprintf("malformed: %v", names),
	}
}

func assertPassCount(s *state, a Assertion) error {
	got := passCounters[a.Field](s.report)
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPassCount,
		Expected: fmt.Sprintf("%s = %d", a.Field, a.Count),
		Actual:   fmt.Sprintf("%s = %d", a.Field, got),
	}
}

// PassCounterNames lists the fields pass_count accepts.
func PassCounterNames() []string {
	names := make([]string, 0, len(passCounters))
	for n := range passCounters {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
