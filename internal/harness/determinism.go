package harness

import (
	"context"
	"fmt"
	"maps"
	"sort"
)

// DeterminismError reports a scenario whose output depends on discovery
// order or whose idle pass rendered units.
type DeterminismError struct {
	Scenario string
	Problem  string
	Units    []string
}

func (e *DeterminismError) Error() string {
	if len(e.Units) == 0 {
		return fmt.Sprintf("scenario %s: %s", e.Scenario, e.Problem)
	}
	return fmt.Sprintf("scenario %s: %s: %v", e.Scenario, e.Problem, e.Units)
}

// CheckDeterminism runs a scenario's initial pass twice, once as written
// and once with the spec files reversed on a single worker, and requires
// identical units. It then requires that repeating the initial pass with
// unchanged files renders nothing.
func CheckDeterminism(ctx context.Context, scenario *Scenario) error {
	initial := *scenario
	initial.Steps = nil

	a, err := Run(ctx, &initial)
	if err != nil {
		return err
	}
	b, err := Run(ctx, &initial, WithReversedSpecs(), WithWorkers(1))
	if err != nil {
		return err
	}
	if diff := diffUnits(a.Units, b.Units); len(diff) > 0 {
		return &DeterminismError{Scenario: scenario.Name, Problem: "output depends on file order", Units: diff}
	}

	idle := initial
	var updates []FileUpdate
	for _, p := range scenario.Specs {
		updates = append(updates, FileUpdate{File: p, From: p})
	}
	idle.Steps = []Step{{Name: "idle", Update: updates}}
	c, err := Run(ctx, &idle)
	if err != nil {
		return err
	}
	last := c.Reports[len(c.Reports)-1]
	if last.Rendered != 0 || last.Changed != 0 {
		return &DeterminismError{
			Scenario: scenario.Name,
			Problem:  fmt.Sprintf("idle pass rendered %d and changed %d units", last.Rendered, last.Changed),
		}
	}
	if !maps.Equal(a.Units, c.Units) {
		return &DeterminismError{Scenario: scenario.Name, Problem: "idle pass changed output", Units: diffUnits(a.Units, c.Units)}
	}
	return nil
}

func diffUnits(a, b map[string]string) []string {
	var out []string
	for id, text := range a {
		if other, ok := b[id]; !ok || other != text {
			out = append(out, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
