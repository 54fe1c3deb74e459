package harness

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ecsgen/internal/ir"
)

// Snapshot renders a result as golden text: one canonical JSON line of
// pass counters per pass, then every unit under a header line.
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	for i, r := range result.Reports {
		counts := ir.IRObject{}
		for field, read := range passCounters {
			counts[field] = ir.IRInt(int64(read(r)))
		}
		line, err := ir.MarshalCanonical(counts)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "pass %d: %s\n", i, line)
	}

	ids := make([]string, 0, len(result.Units))
	for id := range result.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&buf, "\n==> %s <==\n%s", id, result.Units[id])
	}
	return buf.Bytes(), nil
}

// AssertGolden compares a result against testdata/golden/{name}.golden,
// or against the fixture directory set by opts.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
	return nil
}

// UpdateGolden writes the golden file for a result.
func UpdateGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	return g.Update(t, name, data)
}
