package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/ecsgen/internal/compiler"
	"github.com/roach88/ecsgen/internal/engine"
	"github.com/roach88/ecsgen/internal/sink"
	"github.com/roach88/ecsgen/internal/testutil"
)

// Harness runs one scenario against a fresh engine.
type Harness struct {
	scenario *Scenario
	engine   *engine.Engine
	sink     *sink.MemorySink
	cue      *cue.Context
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	workers  int
	reversed bool
	logger   *slog.Logger
}

// WithWorkers sets the extraction worker count.
func WithWorkers(n int) Option {
	return func(c *runConfig) { c.workers = n }
}

// WithReversedSpecs loads the initial spec files in reverse order.
func WithReversedSpecs() Option {
	return func(c *runConfig) { c.reversed = true }
}

// WithLogger sets the engine logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario: the initial pass, then one pass per step.
// Assertion failures are reported in the result; an error means the
// scenario could not be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		workers: 4,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := sink.NewMemorySink()
	h := &Harness{
		scenario: scenario,
		sink:     out,
		cue:      cuecontext.New(),
		logger:   cfg.logger,
		engine: engine.New(out,
			engine.WithLogger(cfg.logger),
			engine.WithWorkers(cfg.workers),
			engine.WithTokens(testutil.NewFixedTokenGenerator(scenario.PassToken)),
		),
	}

	specs := scenario.Specs
	if cfg.reversed {
		specs = make([]string, len(scenario.Specs))
		for i, p := range scenario.Specs {
			specs[len(specs)-1-i] = p
		}
	}

	result := NewResult()
	files := make([]engine.SourceFile, 0, len(specs))
	for _, p := range specs {
		f, err := h.load(p, p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := h.pass(ctx, result, "initial", files, nil, scenario.Assertions); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("steps[%d]", i)
		}
		var changed []engine.SourceFile
		for _, u := range step.Update {
			f, err := h.load(u.File, u.From)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			changed = append(changed, f)
		}
		if err := h.pass(ctx, result, label, changed, step.Remove, step.Assertions); err != nil {
			return nil, err
		}
	}

	result.Units = out.Snapshot()
	last := result.Reports[len(result.Reports)-1]
	for _, u := range last.Dispatch.Units {
		if u.Failed {
			result.Failed = append(result.Failed, u.Identity)
		}
	}
	return result, nil
}

// load compiles the content of from under the source name name.
func (h *Harness) load(name, from string) (engine.SourceFile, error) {
	data, err := os.ReadFile(h.scenario.Resolve(from))
	if err != nil {
		return engine.SourceFile{}, fmt.Errorf("failed to read spec: %w", err)
	}
	decls, err := compiler.CompileFile(h.cue, name, data)
	if err != nil {
		return engine.SourceFile{}, fmt.Errorf("compile %s: %w", from, err)
	}
	return engine.SourceFile{Path: name, Declarations: decls}, nil
}

func (h *Harness) pass(ctx context.Context, result *Result, label string, changed []engine.SourceFile, removed []string, assertions []Assertion) error {
	report, err := h.engine.Pass(ctx, changed, removed)
	if err != nil {
		return fmt.Errorf("%s pass: %w", label, err)
	}
	result.Reports = append(result.Reports, report)
	h.logger.Debug("scenario pass", "scenario", h.scenario.Name, "pass", label, "units", report.Units)

	st := &state{
		units:  h.sink.Snapshot(),
		failed: make(map[string]bool),
		report: report,
	}
	for _, u := range report.Dispatch.Units {
		if u.Failed {
			st.failed[u.Identity] = true
		}
	}
	for i, a := range assertions {
		if err := evaluate(st, a); err != nil {
			result.fail(fmt.Sprintf("%s assertions[%d]", label, i), err)
		}
	}
	return nil
}
