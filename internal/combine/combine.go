// Package combine joins the facts of one snapshot into the extended facts
// the generators consume: which components and systems live in which
// context, which reactive systems and groups each component mutation must
// notify, and which features each context absorbs.
//
// Combination is a pure function of the snapshot. Every output is sorted so
// results do not depend on discovery order.
package combine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/ecsgen/internal/factstore"
	"github.com/roach88/ecsgen/internal/ir"
)

// Combine joins snap. It returns the context error when cancelled.
func Combine(ctx context.Context, snap factstore.Snapshot) (*Result, error) {
	c := &combiner{}
	c.components = buildIndex(snap.Components, &c.diags)
	c.contexts = buildIndex(snap.Contexts, &c.diags)
	c.systems = buildIndex(snap.Systems, &c.diags)
	c.features = buildIndex(snap.Features, &c.diags)
	c.groups = buildIndex(snap.Groups, &c.diags)
	c.listeners = buildIndex(snap.Listeners, &c.diags)

	steps := []func(context.Context) error{
		c.absorbFeatures,
		c.joinComponents,
		c.joinSystems,
		c.resolveGroups,
		c.buildContexts,
		c.buildSystems,
		c.buildFeatures,
		c.buildListeners,
		c.buildEdges,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	c.result.Diagnostics = c.diags
	return &c.result, nil
}

type combiner struct {
	components index[*ir.ComponentFact]
	contexts   index[*ir.ContextFact]
	systems    index[*ir.SystemFact]
	features   index[*ir.FeatureFact]
	groups     index[*ir.GroupFact]
	listeners  index[*ir.ListenerFact]

	// context full name -> absorbed features, effective component and
	// system lists (declared plus absorbed).
	absorbed  map[string][]*ir.FeatureFact
	ctxComps  map[string]ir.IdentitySet
	ctxSys    map[string]ir.IdentitySet
	compCtx   map[string]ir.IdentitySet
	sysCtx    map[string]ir.IdentitySet
	featCtx   map[string]ir.IdentitySet
	groupCtx  map[string]ir.IdentitySet
	ctxGroups map[string][]*ir.GroupFact

	result Result
	diags  []Diagnostic
}

// index maps full names to facts. Names claimed by several facts that are
// not value-equal are ambiguous and excluded.
type index[T ir.Fact] struct {
	byName map[string]T
	sorted []T
}

func buildIndex[T ir.Fact](facts []T, diags *[]Diagnostic) index[T] {
	idx := index[T]{byName: make(map[string]T, len(facts))}
	ambiguous := make(map[string]bool)
	for _, f := range facts {
		name := f.Identity().FullName
		if ambiguous[name] {
			continue
		}
		prev, seen := idx.byName[name]
		if !seen {
			idx.byName[name] = f
			continue
		}
		if prev.EqualFact(f) {
			continue
		}
		ambiguous[name] = true
		delete(idx.byName, name)
		*diags = append(*diags, Diagnostic{
			Kind:    "ambiguous",
			Subject: name,
			Message: fmt.Sprintf("%s %s is declared more than once with different content", f.Category(), name),
		})
	}
	for _, f := range idx.byName {
		idx.sorted = append(idx.sorted, f)
	}
	slices.SortFunc(idx.sorted, func(a, b T) int {
		return a.Identity().Compare(b.Identity())
	})
	return idx
}

func (x index[T]) get(name string) (T, bool) {
	f, ok := x.byName[name]
	return f, ok
}

// resolve maps a set of names onto existing facts, dropping unknown names.
func (x index[T]) resolve(names ir.IdentitySet) []T {
	var out []T
	for _, id := range names.Items() {
		if f, ok := x.byName[id.FullName]; ok {
			out = append(out, f)
		}
	}
	return out
}

// guard runs fn and turns a panic into an "aborted" diagnostic so one bad
// tuple does not fail the pass.
func (c *combiner) guard(subject string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.diags = append(c.diags, Diagnostic{
				Kind:    "aborted",
				Subject: subject,
				Message: fmt.Sprint(r),
			})
			ok = false
		}
	}()
	fn()
	return true
}

// absorbFeatures folds features into contexts. A context absorbs a feature
// when it lists the feature or the feature names the context.
func (c *combiner) absorbFeatures(ctx context.Context) error {
	c.absorbed = make(map[string][]*ir.FeatureFact)
	c.ctxComps = make(map[string]ir.IdentitySet)
	c.ctxSys = make(map[string]ir.IdentitySet)
	featCtx := make(map[string]*ir.IdentitySetBuilder)

	for _, cf := range c.contexts.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		var comps, systems ir.IdentitySetBuilder
		comps.AddSet(cf.Components)
		systems.AddSet(cf.Systems)
		for _, ff := range c.features.sorted {
			if !cf.Features.Contains(ff.Type) && !ff.ManualContexts.Contains(cf.Type) {
				continue
			}
			c.absorbed[cf.Type.FullName] = append(c.absorbed[cf.Type.FullName], ff)
			comps.AddSet(ff.Components)
			systems.AddSet(ff.Systems)
			b := featCtx[ff.Type.FullName]
			if b == nil {
				b = &ir.IdentitySetBuilder{}
				featCtx[ff.Type.FullName] = b
			}
			b.Add(cf.Type)
		}
		c.ctxComps[cf.Type.FullName] = comps.Build()
		c.ctxSys[cf.Type.FullName] = systems.Build()
	}

	c.featCtx = make(map[string]ir.IdentitySet, len(featCtx))
	for name, b := range featCtx {
		c.featCtx[name] = b.Build()
	}
	return nil
}

// joinComponents resolves every component into the contexts that list it
// (directly or through a feature) or that it names itself.
func (c *combiner) joinComponents(ctx context.Context) error {
	c.compCtx = make(map[string]ir.IdentitySet, len(c.components.sorted))
	for _, comp := range c.components.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		var set ir.IdentitySetBuilder
		for _, cf := range c.contexts.sorted {
			if c.ctxComps[cf.Type.FullName].Contains(comp.Type) || comp.ManualContexts.Contains(cf.Type) {
				set.Add(cf.Type)
			}
		}
		contexts := set.Build()
		c.compCtx[comp.Type.FullName] = contexts
		c.result.Components = append(c.result.Components, &ExtendedComponent{Fact: comp, Contexts: contexts})
	}
	return nil
}

// joinSystems is the same OR-join for systems.
func (c *combiner) joinSystems(ctx context.Context) error {
	c.sysCtx = make(map[string]ir.IdentitySet, len(c.systems.sorted))
	for _, sys := range c.systems.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		var set ir.IdentitySetBuilder
		for _, cf := range c.contexts.sorted {
			if c.ctxSys[cf.Type.FullName].Contains(sys.Type) || sys.ManualContexts.Contains(cf.Type) {
				set.Add(cf.Type)
			}
		}
		c.sysCtx[sys.Type.FullName] = set.Build()
	}
	return nil
}

// resolveGroups applies a group to every context that all of its components
// resolve into.
func (c *combiner) resolveGroups(ctx context.Context) error {
	c.groupCtx = make(map[string]ir.IdentitySet, len(c.groups.sorted))
	c.ctxGroups = make(map[string][]*ir.GroupFact)
	for _, g := range c.groups.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.guard(g.Type.FullName, func() {
			members := g.Components()
			comps := c.components.resolve(members)

			var set ir.IdentitySetBuilder
			if len(comps) == members.Len() {
				for _, cf := range c.contexts.sorted {
					if c.allIn(comps, cf.Type.FullName) {
						set.Add(cf.Type)
						c.ctxGroups[cf.Type.FullName] = append(c.ctxGroups[cf.Type.FullName], g)
					}
				}
			}
			contexts := set.Build()
			c.groupCtx[g.Type.FullName] = contexts
			c.result.Groups = append(c.result.Groups, &ExtendedGroup{Fact: g, Components: comps, Contexts: contexts})
		})
	}
	return nil
}

func (c *combiner) allIn(comps []*ir.ComponentFact, context string) bool {
	for _, comp := range comps {
		if !c.compCtx[comp.Type.FullName].ContainsName(context) {
			return false
		}
	}
	return true
}

func (c *combiner) buildContexts(ctx context.Context) error {
	for _, cf := range c.contexts.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := cf.Type.FullName
		c.guard(name, func() {
			ext := &ExtendedContext{
				Fact:     cf,
				Features: c.absorbed[name],
				Groups:   c.ctxGroups[name],
			}
			for _, comp := range c.components.sorted {
				if c.compCtx[comp.Type.FullName].ContainsName(name) {
					ext.Components = append(ext.Components, comp)
				}
			}
			for _, sys := range c.systems.sorted {
				if c.sysCtx[sys.Type.FullName].ContainsName(name) {
					ext.Systems = append(ext.Systems, sys)
				}
			}
			sortSystems(ext.Systems)
			c.result.Contexts = append(c.result.Contexts, ext)
		})
	}
	return nil
}

func (c *combiner) buildSystems(ctx context.Context) error {
	for _, sys := range c.systems.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.guard(sys.Type.FullName, func() {
			ext := &ExtendedSystem{
				Fact:     sys,
				Contexts: c.sysCtx[sys.Type.FullName],
				EntityIs: c.components.resolve(sys.EntityIs),
			}
			for _, tr := range sys.Triggers {
				if comp, ok := c.components.get(tr.Component.FullName); ok {
					ext.Triggers = append(ext.Triggers, ResolvedTrigger{Component: comp, Kind: tr.Kind})
				}
			}
			c.result.Systems = append(c.result.Systems, ext)
		})
	}
	slices.SortStableFunc(c.result.Systems, func(a, b *ExtendedSystem) int {
		return compareSystems(a.Fact, b.Fact)
	})
	return nil
}

func (c *combiner) buildFeatures(ctx context.Context) error {
	for _, ff := range c.features.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.guard(ff.Type.FullName, func() {
			ext := &ExtendedFeature{
				Fact:       ff,
				Components: c.components.resolve(ff.Components),
				Systems:    c.systems.resolve(ff.Systems),
				Contexts:   c.featCtx[ff.Type.FullName],
			}
			sortSystems(ext.Systems)
			c.result.Features = append(c.result.Features, ext)
		})
	}
	return nil
}

func (c *combiner) buildListeners(ctx context.Context) error {
	for _, lf := range c.listeners.sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		comp, ok := c.components.get(lf.Component.FullName)
		if !ok {
			continue
		}
		c.result.Listeners = append(c.result.Listeners, &ExtendedListener{
			Fact:      lf,
			Component: comp,
			Contexts:  c.compCtx[comp.Type.FullName],
		})
	}
	return nil
}

// buildEdges wires every component × context pair: reactive systems in the
// context that trigger on the component, group hooks for groups of the
// context that mention it, and listeners of the component.
func (c *combiner) buildEdges(ctx context.Context) error {
	for _, comp := range c.components.sorted {
		for _, ctxID := range c.compCtx[comp.Type.FullName].Items() {
			if err := ctx.Err(); err != nil {
				return err
			}
			cf, ok := c.contexts.get(ctxID.FullName)
			if !ok {
				continue
			}
			subject := comp.Type.FullName + " in " + cf.Type.FullName
			c.guard(subject, func() {
				c.result.Edges = append(c.result.Edges, c.edge(comp, cf))
			})
		}
	}
	return nil
}

func (c *combiner) edge(comp *ir.ComponentFact, cf *ir.ContextFact) *ComponentInContext {
	e := &ComponentInContext{Component: comp, Context: cf}
	name := comp.Type.FullName

	for _, sys := range c.systems.sorted {
		if !sys.Reactive.Enabled || !c.sysCtx[sys.Type.FullName].Contains(cf.Type) {
			continue
		}
		for _, h := range ir.HooksFor(sys.TriggersOn(name)) {
			slot := e.hookSlot(h)
			*slot = append(*slot, sys)
		}
	}
	for _, h := range ir.Hooks {
		sortSystems(*e.hookSlot(h))
	}

	for _, g := range c.ctxGroups[cf.Type.FullName] {
		if g.Mentions(name) {
			e.Groups = append(e.Groups, DeriveGroupHook(g, name))
		}
	}

	for _, lf := range c.listeners.sorted {
		if lf.Component.FullName == name {
			e.Listeners = append(e.Listeners, lf)
		}
	}
	return e
}

// DeriveGroupHook decides how adding and removing component updates group
// membership. NoneOf members invert the polarity. With a single constraint
// the mutation is unconditional; otherwise it is guarded by the group
// predicate.
func DeriveGroupHook(g *ir.GroupFact, component string) GroupHook {
	h := GroupHook{Group: g}
	if g.NoneOf.ContainsName(component) {
		h.OnAdded = GroupAction{Op: GroupRemove, Condition: Always}
		h.OnRemoved = GroupAction{Op: GroupAdd, Condition: IfMatches}
	} else {
		h.OnAdded = GroupAction{Op: GroupAdd, Condition: IfMatches}
		h.OnRemoved = GroupAction{Op: GroupRemove, Condition: UnlessMatches}
	}
	if g.Constraints() == 1 {
		h.OnAdded.Condition = Always
		h.OnRemoved.Condition = Always
	}
	return h
}

func compareSystems(a, b *ir.SystemFact) int {
	if c := cmp.Compare(a.Reactive.Order, b.Reactive.Order); c != 0 {
		return c
	}
	return a.Type.Compare(b.Type)
}

func sortSystems(systems []*ir.SystemFact) {
	slices.SortFunc(systems, compareSystems)
}
