package dispatch

import (
	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/ir"
	"github.com/roach88/ecsgen/internal/templates"
)

// Generator names.
const (
	GenComponentContexts    = "component.contexts"
	GenComponentDeclaration = "component.declaration"
	GenComponentEvents      = "component.events"
	GenComponentIndex       = "component.index"
	GenComponentCleanup     = "component.cleanup"
	GenEntityExtension      = "entity.extension"
	GenContextDeclaration   = "context.declaration"
	GenContextSystems       = "context.systems"
	GenSystemDeclaration    = "system.declaration"
	GenFeatureDeclaration   = "feature.declaration"
	GenListenerDeclaration  = "listener.declaration"
)

// Generators returns the standard generator set in dispatch order.
func Generators() []Generator {
	return []Generator{
		componentGenerator(GenComponentContexts, "Contexts", templates.ComponentContexts,
			func(c *combine.ExtendedComponent) bool { return !c.Contexts.Empty() },
			"type"),
		componentGenerator(GenComponentDeclaration, "", templates.ComponentDeclaration,
			func(*combine.ExtendedComponent) bool { return true },
			"type", "fields", "unique"),
		componentGenerator(GenComponentEvents, "Events", templates.ComponentEvents,
			func(c *combine.ExtendedComponent) bool { return len(c.Fact.Events) > 0 && !c.Contexts.Empty() },
			"type", "events"),
		componentGenerator(GenComponentIndex, "Index", templates.ComponentIndex,
			func(c *combine.ExtendedComponent) bool { return c.Fact.Index.Kind != ir.IndexNone && !c.Contexts.Empty() },
			"type", "fields", "index_kind", "index_max", "custom_index"),
		componentGenerator(GenComponentCleanup, "Cleanup", templates.ComponentCleanup,
			func(c *combine.ExtendedComponent) bool { return c.Fact.Cleanup != ir.CleanupNone && !c.Contexts.Empty() },
			"type", "cleanup"),
		newGenerator(GenEntityExtension,
			func(r *combine.Result) []*combine.ComponentInContext { return r.Edges },
			func(e *combine.ComponentInContext) string {
				return e.Component.Type.FullName + "|" + e.Context.Type.FullName
			},
			projectEdge,
			func(e *combine.ComponentInContext) []UnitSpec {
				ctx := e.Context.Type
				return []UnitSpec{{
					Identity: UnitIdentity(ctx.Namespace, ctx.Name+"."+e.Component.Type.FullName+".Entity"),
					Template: templates.EntityExtension,
					View:     func() any { return templates.NewEntityView(e) },
				}}
			}),
		newGenerator(GenContextDeclaration,
			func(r *combine.Result) []*combine.ExtendedContext { return r.Contexts },
			func(c *combine.ExtendedContext) string { return c.Fact.Type.FullName },
			projectContext,
			func(c *combine.ExtendedContext) []UnitSpec {
				t := c.Fact.Type
				return []UnitSpec{{
					Identity: UnitIdentity(t.Namespace, t.Name),
					Template: templates.ContextDeclaration,
					View:     func() any { return templates.NewContextView(c) },
				}}
			}),
		newGenerator(GenContextSystems,
			func(r *combine.Result) []*combine.ExtendedContext { return r.Contexts },
			func(c *combine.ExtendedContext) string { return c.Fact.Type.FullName },
			projectContextSystems,
			func(c *combine.ExtendedContext) []UnitSpec {
				t := c.Fact.Type
				return []UnitSpec{{
					Identity: UnitIdentity(t.Namespace, t.Name+".Systems"),
					Template: templates.ContextSystems,
					View:     func() any { return templates.NewContextView(c) },
				}}
			}),
		newGenerator(GenSystemDeclaration,
			func(r *combine.Result) []*combine.ExtendedSystem { return r.Systems },
			func(s *combine.ExtendedSystem) string { return s.Fact.Type.FullName },
			projectSystem,
			func(s *combine.ExtendedSystem) []UnitSpec {
				t := s.Fact.Type
				return []UnitSpec{{
					Identity: UnitIdentity(t.Namespace, t.Name),
					Template: templates.SystemDeclaration,
					View:     func() any { return templates.NewSystemView(s) },
				}}
			}),
		newGenerator(GenFeatureDeclaration,
			func(r *combine.Result) []*combine.ExtendedFeature { return r.Features },
			func(f *combine.ExtendedFeature) string { return f.Fact.Type.FullName },
			projectFeature,
			func(f *combine.ExtendedFeature) []UnitSpec {
				t := f.Fact.Type
				return []UnitSpec{{
					Identity: UnitIdentity(t.Namespace, t.Name),
					Template: templates.FeatureDeclaration,
					View:     func() any { return templates.NewFeatureView(f) },
				}}
			}),
		newGenerator(GenListenerDeclaration,
			func(r *combine.Result) []*combine.ExtendedListener { return r.Listeners },
			func(l *combine.ExtendedListener) string { return l.Fact.Type.FullName },
			projectListener,
			func(l *combine.ExtendedListener) []UnitSpec {
				t := l.Fact.Type
				return []UnitSpec{{
					Identity: UnitIdentity(t.Namespace, t.Name),
					Template: templates.ListenerDeclaration,
					View:     func() any { return templates.NewListenerView(l) },
				}}
			}),
	}
}

// componentGenerator builds one of the per-component generators. The
// projection is the named keys of the component's canonical form plus its
// resolved contexts.
func componentGenerator(
	name, suffix, tmpl string,
	keep func(*combine.ExtendedComponent) bool,
	keys ...string,
) Generator {
	return newGenerator(name,
		func(r *combine.Result) []*combine.ExtendedComponent {
			var out []*combine.ExtendedComponent
			for _, c := range r.Components {
				if keep(c) {
					out = append(out, c)
				}
			}
			return out
		},
		func(c *combine.ExtendedComponent) string { return c.Fact.Type.FullName },
		func(c *combine.ExtendedComponent) ir.IRObject {
			obj := pick(c.Fact.Canonical(), keys...)
			obj["contexts"] = c.Contexts.Canonical()
			return obj
		},
		func(c *combine.ExtendedComponent) []UnitSpec {
			t := c.Fact.Type
			logical := t.Name
			if suffix != "" {
				logical += "." + suffix
			}
			return []UnitSpec{{
				Identity: UnitIdentity(t.Namespace, logical),
				Template: tmpl,
				View:     func() any { return templates.NewComponentView(c) },
			}}
		})
}

func pick(obj ir.IRObject, keys ...string) ir.IRObject {
	out := make(ir.IRObject, len(keys)+1)
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			out[k] = v
		}
	}
	return out
}

func systemNames(systems []*ir.SystemFact) ir.IRArray {
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.Type.FullName
	}
	return orderedStrings(names)
}

func componentNames(comps []*ir.ComponentFact) ir.IRArray {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.Type.FullName
	}
	return orderedStrings(names)
}

// orderedStrings keeps the given order; ir.Strings sorts.
func orderedStrings(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}

func groupAction(a combine.GroupAction) ir.IRObject {
	return ir.IRObject{
		"op":        ir.IRString(a.Op.String()),
		"condition": ir.IRString(a.Condition.String()),
	}
}

func projectEdge(e *combine.ComponentInContext) ir.IRObject {
	obj := pick(e.Component.Canonical(), "type", "fields", "unique", "cleanup")
	obj["context"] = ir.IRString(e.Context.Type.FullName)
	for _, h := range ir.Hooks {
		obj[h.String()] = systemNames(e.Hook(h))
	}
	groups := make(ir.IRArray, len(e.Groups))
	for i, g := range e.Groups {
		groups[i] = ir.IRObject{
			"group":      g.Group.Canonical(),
			"on_added":   groupAction(g.OnAdded),
			"on_removed": groupAction(g.OnRemoved),
		}
	}
	obj["groups"] = groups
	listeners := make(ir.IRArray, len(e.Listeners))
	for i, l := range e.Listeners {
		listeners[i] = l.Canonical()
	}
	obj["listeners"] = listeners
	return obj
}

func projectContext(c *combine.ExtendedContext) ir.IRObject {
	features := make([]string, len(c.Features))
	for i, f := range c.Features {
		features[i] = f.Type.FullName
	}
	groups := make(ir.IRArray, len(c.Groups))
	for i, g := range c.Groups {
		groups[i] = g.Canonical()
	}
	return ir.IRObject{
		"type":       ir.IRString(c.Fact.Type.FullName),
		"components": componentNames(c.Components),
		"features":   orderedStrings(features),
		"groups":     groups,
	}
}

func projectContextSystems(c *combine.ExtendedContext) ir.IRObject {
	systems := make(ir.IRArray, len(c.Systems))
	for i, s := range c.Systems {
		systems[i] = pick(s.Canonical(), "type", "initialize", "execute", "reactive")
	}
	return ir.IRObject{
		"type":    ir.IRString(c.Fact.Type.FullName),
		"systems": systems,
	}
}

func projectSystem(s *combine.ExtendedSystem) ir.IRObject {
	obj := pick(s.Fact.Canonical(), "type", "initialize", "execute", "reactive")
	obj["contexts"] = s.Contexts.Canonical()
	triggers := make(ir.IRArray, len(s.Triggers))
	for i, tr := range s.Triggers {
		triggers[i] = ir.IRObject{
			"component": ir.IRString(tr.Component.Type.FullName),
			"kind":      ir.IRInt(int64(tr.Kind)),
		}
	}
	obj["triggers"] = triggers
	obj["entity_is"] = componentNames(s.EntityIs)
	return obj
}

func projectFeature(f *combine.ExtendedFeature) ir.IRObject {
	return ir.IRObject{
		"type":       ir.IRString(f.Fact.Type.FullName),
		"components": componentNames(f.Components),
		"systems":    systemNames(f.Systems),
		"contexts":   f.Contexts.Canonical(),
	}
}

func projectListener(l *combine.ExtendedListener) ir.IRObject {
	obj := l.Fact.Canonical()
	obj["contexts"] = l.Contexts.Canonical()
	return obj
}
