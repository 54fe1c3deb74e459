package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/ir"
	"github.com/roach88/ecsgen/internal/templates"
)

// Unit is one named piece of generated text.
type Unit struct {
	Identity  string `json:"identity"`
	Generator string `json:"generator"`
	Text      string `json:"-"`
	Hash      string `json:"hash"`
	Failed    bool   `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failure records a unit whose rendering failed. The unit is still emitted
// with the error embedded in its text.
type Failure struct {
	Identity  string `json:"identity"`
	Generator string `json:"generator"`
	Message   string `json:"message"`
}

// Report is the outcome of one dispatch.
type Report struct {
	Units    []Unit    // every current unit, sorted by identity
	Changed  []Unit    // new units and units whose text differs from the previous dispatch
	Removed  []string  // identities present in the previous dispatch and gone now
	Rendered int       // units rendered this dispatch
	Hits     int       // units reused from the projection cache
	Failures []Failure // units whose rendering failed, sorted by identity
}

type cached struct {
	hash  string
	units []Unit
}

// Dispatcher runs generators over combination results and caches their
// output per projection. A Dispatcher must not be used concurrently.
type Dispatcher struct {
	engine     *templates.Engine
	generators []Generator
	logger     *slog.Logger

	cache map[string]map[string]cached // generator -> item key
	last  map[string]string            // identity -> content hash
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithGenerators replaces the standard generator set.
func WithGenerators(gens ...Generator) Option {
	return func(d *Dispatcher) { d.generators = gens }
}

// New creates a dispatcher rendering with engine.
func New(engine *templates.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:     engine,
		generators: Generators(),
		logger:     slog.Default(),
		cache:      make(map[string]map[string]cached),
		last:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch derives every unit of r. Cancellation returns the context error
// and leaves the previous cache untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, r *combine.Result) (*Report, error) {
	report := &Report{}
	next := make(map[string]map[string]cached, len(d.generators))
	seen := make(map[string]string) // identity -> generator

	for _, g := range d.generators {
		prev := d.cache[g.Name()]
		cur := make(map[string]cached)
		for _, it := range g.items(r) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			entry, hit := d.derive(g.Name(), it, prev)
			cur[it.key] = entry
			if hit {
				report.Hits += len(entry.units)
			} else {
				report.Rendered += len(entry.units)
			}
			for _, u := range entry.units {
				if owner, dup := seen[u.Identity]; dup {
					report.Failures = append(report.Failures, Failure{
						Identity:  u.Identity,
						Generator: g.Name(),
						Message:   fmt.Sprintf("identity already produced by %s", owner),
					})
					continue
				}
				seen[u.Identity] = g.Name()
				report.Units = append(report.Units, u)
				if u.Failed {
					report.Failures = append(report.Failures, Failure{
						Identity:  u.Identity,
						Generator: g.Name(),
						Message:   u.Error,
					})
				}
			}
		}
		next[g.Name()] = cur
	}

	sort.Slice(report.Units, func(i, j int) bool { return report.Units[i].Identity < report.Units[j].Identity })
	sort.SliceStable(report.Failures, func(i, j int) bool { return report.Failures[i].Identity < report.Failures[j].Identity })

	last := make(map[string]string, len(report.Units))
	for _, u := range report.Units {
		last[u.Identity] = u.Hash
		if h, ok := d.last[u.Identity]; !ok || h != u.Hash {
			report.Changed = append(report.Changed, u)
		}
	}
	for id := range d.last {
		if _, ok := last[id]; !ok {
			report.Removed = append(report.Removed, id)
		}
	}
	sort.Strings(report.Removed)

	d.cache = next
	d.last = last

	d.logger.Debug("dispatch complete",
		"units", len(report.Units),
		"changed", len(report.Changed),
		"removed", len(report.Removed),
		"rendered", report.Rendered,
		"hits", report.Hits,
		"failures", len(report.Failures))
	return report, nil
}

// Forget marks the previous content of identity as unknown. The next
// dispatch reports it as changed even when its text is the same, or as
// removed when it is no longer produced.
func (d *Dispatcher) Forget(identity string) {
	if _, ok := d.last[identity]; ok {
		d.last[identity] = ""
	}
}

// Reset drops every cached projection and the previous unit set.
func (d *Dispatcher) Reset() {
	d.cache = make(map[string]map[string]cached)
	d.last = make(map[string]string)
}

// derive returns the cached units of it when its projection hash is
// unchanged, and renders them otherwise.
func (d *Dispatcher) derive(gen string, it item, prev map[string]cached) (cached, bool) {
	hash, err := d.projectionHash(it)
	if err == nil {
		if old, ok := prev[it.key]; ok && old.hash == hash {
			return old, true
		}
	}
	specs, specErr := d.specs(it)
	if specErr != nil {
		d.logger.Error("unit naming failed", "generator", gen, "item", it.key, "error", specErr)
		return cached{}, false
	}
	units := make([]Unit, len(specs))
	for i, spec := range specs {
		units[i] = d.render(gen, spec)
	}
	if err != nil {
		// Without a projection hash the units cannot be reused next time.
		d.logger.Warn("projection failed", "generator", gen, "item", it.key, "error", err)
		hash = ""
	}
	return cached{hash: hash, units: units}, false
}

func (d *Dispatcher) projectionHash(it item) (hash string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("projection panicked: %v", r)
		}
	}()
	return ir.ProjectionHash(it.projection())
}

func (d *Dispatcher) specs(it item) (specs []UnitSpec, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return it.units(), nil
}

// render produces one unit. Errors and panics become failure units.
func (d *Dispatcher) render(gen string, spec UnitSpec) (u Unit) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("render panicked",
				"generator", gen,
				"unit", spec.Identity,
				"panic", r,
				"stack", string(debug.Stack()))
			u = d.failed(gen, spec.Identity, fmt.Errorf("panic: %v", r))
		}
	}()
	text, err := d.engine.Render(spec.Template, spec.View())
	if err != nil {
		d.logger.Error("render failed", "generator", gen, "unit", spec.Identity, "error", err)
		return d.failed(gen, spec.Identity, err)
	}
	return Unit{Identity: spec.Identity, Generator: gen, Text: text, Hash: ir.ContentHash(text)}
}

func (d *Dispatcher) failed(gen, identity string, cause error) Unit {
	text := d.engine.Failure(identity, cause)
	return Unit{
		Identity:  identity,
		Generator: gen,
		Text:      text,
		Hash:      ir.ContentHash(text),
		Failed:    true,
		Error:     cause.Error(),
	}
}
