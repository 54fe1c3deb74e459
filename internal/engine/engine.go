package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/dispatch"
	"github.com/roach88/ecsgen/internal/extract"
	"github.com/roach88/ecsgen/internal/factstore"
	"github.com/roach88/ecsgen/internal/ir"
	"github.com/roach88/ecsgen/internal/sink"
	"github.com/roach88/ecsgen/internal/store"
	"github.com/roach88/ecsgen/internal/templates"
)

// DefaultWorkers bounds concurrent extraction.
const DefaultWorkers = 8

// SourceFile is one host file and the declarations it currently holds.
type SourceFile struct {
	Path         string
	Declarations []ir.Declaration
}

// Engine owns the fact store, the dispatcher caches and the sink for one
// project. Pass is safe to call from any goroutine; passes run one at a
// time.
type Engine struct {
	mu sync.Mutex

	facts      *factstore.Store
	dispatcher *dispatch.Dispatcher
	sink       sink.Sink
	manifest   *store.Store
	tokens     TokenGenerator
	workers    int
	logger     *slog.Logger

	files      map[string][]ir.Declaration
	seq        int64 // last pass sequence
	resumed    bool  // seq has been read from the manifest
	reconciled bool
	unremoved  []string // identities whose removal failed
	last       *combine.Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds concurrent extraction. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithManifest records passes in the manifest and removes units that the
// manifest lists but the first pass no longer produces. Pass sequences
// continue after the last one the manifest recorded.
func WithManifest(s *store.Store) Option {
	return func(e *Engine) { e.manifest = s }
}

// WithTokens replaces the pass token generator.
func WithTokens(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// New creates an engine publishing to out.
func New(out sink.Sink, opts ...Option) *Engine {
	e := &Engine{
		facts:   factstore.New(),
		sink:    out,
		tokens:  UUIDv7Generator{},
		workers: DefaultWorkers,
		logger:  slog.Default(),
		files:   make(map[string][]ir.Declaration),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatcher = dispatch.New(templates.MustNewEngine(), dispatch.WithLogger(e.logger))
	return e
}

// Last returns the combination result of the last completed pass.
func (e *Engine) Last() *combine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Pass runs one generation pass. changed replaces the declarations of the
// named files; removed drops files entirely.
//
// Sink failures do not stop the pass: every unit is attempted and the
// failures are returned joined, alongside the report.
func (e *Engine) Pass(ctx context.Context, changed []SourceFile, removed []string) (*PassReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.resume(ctx); err != nil {
		return nil, err
	}
	e.seq++
	seq := e.seq
	token := e.tokens.Generate()
	report := &PassReport{Seq: seq, Token: token}
	log := e.logger.With("pass", seq)

	for _, path := range removed {
		delete(e.files, path)
		if keys := e.facts.DropFile(path); len(keys) > 0 {
			report.Removed += len(keys)
			log.Debug("file removed", "file", path, "facts", len(keys))
		}
	}
	for _, f := range changed {
		decls := make([]ir.Declaration, len(f.Declarations))
		for i, d := range f.Declarations {
			d.File = f.Path
			decls[i] = d
		}
		e.files[f.Path] = decls
	}

	if err := e.extract(ctx, seq, report); err != nil {
		return nil, err
	}

	snap := e.facts.Snapshot()
	report.Facts = snap.Len()

	combined, err := combine.Combine(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("combine: %w", err)
	}
	report.Diagnostics = combined.Diagnostics
	for _, d := range combined.Diagnostics {
		log.Warn("combination dropped input", "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}

	dr, err := e.dispatcher.Dispatch(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	e.last = combined
	report.Dispatch = dr
	report.Units = len(dr.Units)
	report.Changed = len(dr.Changed)
	report.RemovedUnits = len(dr.Removed)
	report.Rendered = dr.Rendered
	report.Hits = dr.Hits
	report.Failures = dr.Failures

	emitErr := e.publish(ctx, token, seq, dr)
	if err := e.record(ctx, report); err != nil {
		emitErr = errors.Join(emitErr, err)
	}

	log.Info("pass complete",
		"token", token,
		"facts", report.Facts,
		"extracted", report.Extracted,
		"reused", report.Reused,
		"malformed", report.Malformed,
		"units", report.Units,
		"changed", report.Changed,
		"rendered", report.Rendered,
		"hits", report.Hits)
	return report, emitErr
}

// resume continues the pass sequence from the manifest once per engine.
func (e *Engine) resume(ctx context.Context) error {
	if e.manifest == nil || e.resumed {
		return nil
	}
	last, err := e.manifest.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	e.seq = max(e.seq, last)
	e.resumed = true
	return nil
}

// extract re-hashes every loaded declaration and extracts those whose hash
// is not cached.
func (e *Engine) extract(ctx context.Context, seq int64, report *PassReport) error {
	known := e.knownTypes()
	isKnown := func(name string) bool { return known[name] }

	paths := make([]string, 0, len(e.files))
	for p := range e.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	type job struct {
		key  factstore.Key
		decl ir.Declaration
		hash string
	}
	var jobs []job
	live := make(map[string]map[factstore.Key]bool, len(paths))

	for _, path := range paths {
		live[path] = make(map[factstore.Key]bool)
		for _, d := range e.files[path] {
			report.Declarations++
			key := factstore.Key{File: path, Name: d.FullName()}
			if live[path][key] {
				e.logger.Warn("duplicate declaration ignored", "file", path, "name", key.Name)
				continue
			}
			live[path][key] = true

			resolved := extract.ResolveAttributes(d, isKnown)
			hash, err := ir.DeclarationHash(resolved)
			if err != nil {
				return fmt.Errorf("hash %s: %w", key.Name, err)
			}
			if _, ok := e.facts.Cached(key, hash); ok {
				report.Reused++
				continue
			}
			jobs = append(jobs, job{key: key, decl: resolved, hash: hash})
		}
	}

	// Vanished declarations of files that are still loaded.
	for _, path := range paths {
		report.Removed += len(e.facts.Sweep(path, live[path]))
	}

	var mu sync.Mutex
	var malformed []*extract.MalformedError
	var added, updated, unchanged, removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, j := range jobs {
		g.Go(func() error {
			res := extract.Extract(gctx, j.decl)
			if res.Status == extract.NotApplicable && res.Err != nil {
				return res.Err
			}
			var fact ir.Fact
			switch res.Status {
			case extract.Success:
				fact = res.Fact
			case extract.Malformed:
				var me *extract.MalformedError
				if errors.As(res.Err, &me) {
					mu.Lock()
					malformed = append(malformed, me)
					mu.Unlock()
				}
			}
			_, change := e.facts.Put(j.key, j.hash, fact, seq)
			switch change {
			case factstore.ChangeAdded:
				added.Add(1)
			case factstore.ChangeUpdated:
				updated.Add(1)
			case factstore.ChangeRemoved:
				removed.Add(1)
			default:
				unchanged.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sort.Slice(malformed, func(i, k int) bool {
		if malformed[i].File != malformed[k].File {
			return malformed[i].File < malformed[k].File
		}
		return malformed[i].Declaration < malformed[k].Declaration
	})
	for _, me := range malformed {
		e.logger.Warn("malformed declaration", "file", me.File, "name", me.Declaration, "error", me.Message)
	}

	report.Extracted = len(jobs)
	report.Added = int(added.Load())
	report.Updated = int(updated.Load())
	report.Unchanged = int(unchanged.Load())
	report.Removed += int(removed.Load())
	report.Malformed = len(malformed)
	report.Malformations = malformed
	return nil
}

// knownTypes is every declared full name across loaded files.
func (e *Engine) knownTypes() map[string]bool {
	known := make(map[string]bool)
	for _, decls := range e.files {
		for _, d := range decls {
			known[d.FullName()] = true
		}
	}
	return known
}

// publish sends changed units to the sink and removes vanished ones. On
// the first pass with a manifest, units the manifest lists but this pass
// did not produce are removed too.
func (e *Engine) publish(ctx context.Context, token string, seq int64, dr *dispatch.Report) error {
	if pa, ok := e.sink.(sink.PassAware); ok {
		pa.BeginPass(token, seq)
	}

	var errs []error
	for _, u := range dr.Changed {
		if err := e.sink.Emit(ctx, u); err != nil {
			e.dispatcher.Forget(u.Identity)
			errs = append(errs, &EmitError{Identity: u.Identity, Op: "emit", Err: err})
		}
	}

	removed := append(e.pendingRemovals(dr), dr.Removed...)
	if e.manifest != nil && !e.reconciled {
		orphans, err := e.orphans(ctx, dr)
		if err != nil {
			errs = append(errs, err)
		} else {
			removed = append(removed, orphans...)
			e.reconciled = true
		}
	}
	e.unremoved = nil
	for _, id := range removed {
		if err := e.sink.Remove(ctx, id); err != nil {
			e.unremoved = append(e.unremoved, id)
			errs = append(errs, &EmitError{Identity: id, Op: "remove", Err: err})
		}
	}
	return errors.Join(errs...)
}

// pendingRemovals returns the identities whose removal failed in an earlier
// pass and that the current pass does not produce again.
func (e *Engine) pendingRemovals(dr *dispatch.Report) []string {
	if len(e.unremoved) == 0 {
		return nil
	}
	current := make(map[string]bool, len(dr.Units)+len(dr.Removed))
	for _, u := range dr.Units {
		current[u.Identity] = true
	}
	for _, id := range dr.Removed {
		current[id] = true
	}
	var out []string
	for _, id := range e.unremoved {
		if !current[id] {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) orphans(ctx context.Context, dr *dispatch.Report) ([]string, error) {
	entries, err := e.manifest.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	current := make(map[string]bool, len(dr.Units))
	for _, u := range dr.Units {
		current[u.Identity] = true
	}
	for _, id := range dr.Removed {
		current[id] = true // already scheduled
	}
	var out []string
	for _, en := range entries {
		if !current[en.Identity] {
			out = append(out, en.Identity)
		}
	}
	return out, nil
}

func (e *Engine) record(ctx context.Context, r *PassReport) error {
	if e.manifest == nil {
		return nil
	}
	return e.manifest.RecordPass(ctx, store.Pass{
		Token:            r.Token,
		Seq:              r.Seq,
		GeneratorVersion: ir.GeneratorVersion,
		FactVersion:      ir.FactVersion,
		Facts:            r.Facts,
		Malformed:        r.Malformed,
		Units:            r.Units,
		Changed:          r.Changed,
		Removed:          r.RemovedUnits,
		Rendered:         r.Rendered,
		Hits:             r.Hits,
		Failures:         len(r.Failures),
	})
}
