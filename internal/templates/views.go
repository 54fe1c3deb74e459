package templates

import (
	"strings"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/ir"
)

// ContextRef names the generated runtime types of a context.
type ContextRef struct {
	Namespace string
	FullName  string
	Class     string // the declared context class
	Prefix    string // "Game" for GameContext; names generated helpers
	Entity    string // "GameEntity"
	Lookup    string // "GameComponentsLookup"
	Matcher   string // "GameMatcher"
}

// NewContextRef derives the runtime type names of a context.
func NewContextRef(id ir.TypeIdentity) ContextRef {
	class := id.Short()
	return ContextRef{
		Namespace: id.Namespace,
		FullName:  id.FullName,
		Class:     id.Name,
		Prefix:    class,
		Entity:    class + "Entity",
		Lookup:    class + "ComponentsLookup",
		Matcher:   class + "Matcher",
	}
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func contextRefs(set ir.IdentitySet) []ContextRef {
	items := set.Items()
	refs := make([]ContextRef, len(items))
	for i, id := range items {
		refs[i] = NewContextRef(id)
	}
	return refs
}

// ListenerInterface names the interface a listener implements to receive
// one component event in one context.
func ListenerInterface(ctx, comp ir.TypeIdentity, target ir.EventTarget, hook ir.Hook) string {
	return "I" + ctx.Short() + listenerStem(comp, target, hook) + "Listener"
}

// ListenerMethod names the callback of ListenerInterface.
func ListenerMethod(comp ir.TypeIdentity, target ir.EventTarget, hook ir.Hook) string {
	return "On" + listenerStem(comp, target, hook)
}

func listenerStem(comp ir.TypeIdentity, target ir.EventTarget, hook ir.Hook) string {
	prefix := ""
	if target == ir.TargetAny {
		prefix = "Any"
	}
	return prefix + comp.Short() + strings.TrimPrefix(hook.String(), "On")
}

// ComponentView feeds the per-component templates.
type ComponentView struct {
	Namespace   string
	Name        string
	Short       string
	FullName    string
	Fields      []ir.FieldFact
	Unique      bool
	Contexts    []ContextRef
	Events      []EventView
	IndexKind   string
	MaxSize     int64
	CustomIndex string
	KeyType     string
	KeyField    string
	Cleanup     string
	// ContextInterface is the marker interface implemented by every
	// context holding this component.
	ContextInterface string
}

// EventView is one listener interface generated for a component event.
type EventView struct {
	Context   ContextRef
	Interface string
	Method    string
	Order     int64
}

// NewComponentView flattens an extended component.
func NewComponentView(c *combine.ExtendedComponent) ComponentView {
	f := c.Fact
	v := ComponentView{
		Namespace:   f.Type.Namespace,
		Name:        f.Type.Name,
		Short:       f.Type.Short(),
		FullName:    f.Type.FullName,
		Fields:      f.Fields,
		Unique:      f.Unique,
		Contexts:    contextRefs(c.Contexts),
		IndexKind:   f.Index.Kind.String(),
		MaxSize:     f.Index.MaxSize,
		CustomIndex: strings.TrimSpace(f.CustomIndex),
		Cleanup:     f.Cleanup.String(),
		KeyType:     "object",

		ContextInterface: qualify(f.Type.Namespace, "I"+f.Type.Short()+"Context"),
	}
	if len(f.Fields) > 0 {
		v.KeyType, v.KeyField = f.Fields[0].Type, f.Fields[0].Name
	}
	for _, ctx := range c.Contexts.Items() {
		for _, ev := range f.Events {
			for _, h := range ir.HooksFor(ev.Kind) {
				v.Events = append(v.Events, EventView{
					Context:   NewContextRef(ctx),
					Interface: ListenerInterface(ctx, f.Type, ev.Target, h),
					Method:    ListenerMethod(f.Type, ev.Target, h),
					Order:     ev.Order,
				})
			}
		}
	}
	return v
}

// EntityView feeds the entity extension template for one component in one
// context.
type EntityView struct {
	Context   ContextRef
	Component ComponentView
	OnAdded   []string // reactive system full names
	OnChanged []string
	OnSet     []string
	OnRemoved []string
	// Group mutations per path, in group name order.
	GroupsAdded   []GroupCall
	GroupsRemoved []GroupCall
	// Listener notifications per hook.
	ListenersAdded   []ListenerCall
	ListenersChanged []ListenerCall
	ListenersSet     []ListenerCall
	ListenersRemoved []ListenerCall
}

// GroupCall is one rendered group mutation. Guard is empty for an
// unconditional mutation.
type GroupCall struct {
	Group  string
	Method string // "Add" or "Remove"
	Guard  string
}

// ListenerCall notifies one listener type. Interface lives in Namespace.
type ListenerCall struct {
	Listener  string
	Namespace string
	Interface string
	Method    string
	Self      bool
}

// NewEntityView flattens a component × context edge.
func NewEntityView(e *combine.ComponentInContext) EntityView {
	comp := NewComponentView(&combine.ExtendedComponent{
		Fact:     e.Component,
		Contexts: ir.NewIdentitySet(e.Context.Type),
	})
	v := EntityView{
		Context:   NewContextRef(e.Context.Type),
		Component: comp,
		OnAdded:   fullNames(e.OnAdded),
		OnChanged: fullNames(e.OnChanged),
		OnSet:     fullNames(e.OnSet),
		OnRemoved: fullNames(e.OnRemoved),
	}
	for _, g := range e.Groups {
		v.GroupsAdded = append(v.GroupsAdded, groupCall(g.Group, g.OnAdded))
		v.GroupsRemoved = append(v.GroupsRemoved, groupCall(g.Group, g.OnRemoved))
	}
	for _, l := range e.Listeners {
		for _, h := range ir.HooksFor(l.Kind) {
			call := ListenerCall{
				Listener:  l.Type.FullName,
				Namespace: e.Context.Type.Namespace,
				Interface: ListenerInterface(e.Context.Type, l.Component, l.Target, h),
				Method:    ListenerMethod(l.Component, l.Target, h),
				Self:      l.Target == ir.TargetSelf,
			}
			switch h {
			case ir.HookAdded:
				v.ListenersAdded = append(v.ListenersAdded, call)
			case ir.HookChanged:
				v.ListenersChanged = append(v.ListenersChanged, call)
			case ir.HookSet:
				v.ListenersSet = append(v.ListenersSet, call)
			case ir.HookRemoved:
				v.ListenersRemoved = append(v.ListenersRemoved, call)
			}
		}
	}
	return v
}

func groupCall(g *ir.GroupFact, a combine.GroupAction) GroupCall {
	call := GroupCall{Group: g.Type.FullName, Method: "Add"}
	if a.Op == combine.GroupRemove {
		call.Method = "Remove"
	}
	switch a.Condition {
	case combine.IfMatches:
		call.Guard = GroupPredicate(g)
	case combine.UnlessMatches:
		call.Guard = "!(" + GroupPredicate(g) + ")"
	}
	return call
}

// GroupPredicate renders the membership test of a group against "entity".
func GroupPredicate(g *ir.GroupFact) string {
	var terms []string
	for _, id := range g.AllOf.Items() {
		terms = append(terms, "entity.Has"+id.Short()+"()")
	}
	if !g.AnyOf.Empty() {
		var alts []string
		for _, id := range g.AnyOf.Items() {
			alts = append(alts, "entity.Has"+id.Short()+"()")
		}
		terms = append(terms, "("+strings.Join(alts, " || ")+")")
	}
	for _, id := range g.NoneOf.Items() {
		terms = append(terms, "!entity.Has"+id.Short()+"()")
	}
	return strings.Join(terms, " && ")
}

func fullNames(systems []*ir.SystemFact) []string {
	out := make([]string, len(systems))
	for i, s := range systems {
		out[i] = s.Type.FullName
	}
	return out
}

// ContextView feeds the context templates.
type ContextView struct {
	Ref        ContextRef
	Components []ComponentRef
	Features   []string
	Groups     []GroupView
	Phases     []PhaseView
}

// ComponentRef is a component's slot in a context lookup table.
type ComponentRef struct {
	Index    int
	Short    string
	FullName string
}

// GroupView is a group accessor on a context.
type GroupView struct {
	Name      string
	FullName  string
	Predicate string
	AllOf     []string
	AnyOf     []string
	NoneOf    []string
}

// PhaseView lists the systems a context runs in one phase and stage.
type PhaseView struct {
	Kind    string // Initialize, Execute, Reactive
	Stage   string
	Systems []string
}

// NewContextView flattens an extended context.
func NewContextView(c *combine.ExtendedContext) ContextView {
	v := ContextView{Ref: NewContextRef(c.Fact.Type)}
	for i, comp := range c.Components {
		v.Components = append(v.Components, ComponentRef{Index: i, Short: comp.Type.Short(), FullName: comp.Type.FullName})
	}
	for _, f := range c.Features {
		v.Features = append(v.Features, f.Type.FullName)
	}
	for _, g := range c.Groups {
		v.Groups = append(v.Groups, GroupView{
			Name:      g.Type.Name,
			FullName:  g.Type.FullName,
			Predicate: GroupPredicate(g),
			AllOf:     g.AllOf.FullNames(),
			AnyOf:     g.AnyOf.FullNames(),
			NoneOf:    g.NoneOf.FullNames(),
		})
	}
	v.Phases = phases(c.Systems)
	return v
}

// phases groups systems by phase kind and stage. Within a phase systems
// run by (phase order, full name).
func phases(systems []*ir.SystemFact) []PhaseView {
	kinds := []struct {
		name  string
		phase func(*ir.SystemFact) ir.Phase
	}{
		{"Initialize", func(s *ir.SystemFact) ir.Phase { return s.Initialize }},
		{"Execute", func(s *ir.SystemFact) ir.Phase { return s.Execute }},
		{"Reactive", func(s *ir.SystemFact) ir.Phase { return s.Reactive }},
	}
	stages := []ir.ExecutionPhase{ir.PhaseUpdate, ir.PhaseFixedUpdate, ir.PhaseLateUpdate}

	var out []PhaseView
	for _, k := range kinds {
		for _, stage := range stages {
			var members []*ir.SystemFact
			for _, s := range systems {
				if p := k.phase(s); p.Enabled && p.Stage == stage {
					members = append(members, s)
				}
			}
			if len(members) == 0 {
				continue
			}
			sortByPhase(members, k.phase)
			out = append(out, PhaseView{Kind: k.name, Stage: stage.String(), Systems: fullNames(members)})
		}
	}
	return out
}

func sortByPhase(systems []*ir.SystemFact, phase func(*ir.SystemFact) ir.Phase) {
	for i := 1; i < len(systems); i++ {
		for j := i; j > 0 && phaseLess(systems[j], systems[j-1], phase); j-- {
			systems[j], systems[j-1] = systems[j-1], systems[j]
		}
	}
}

func phaseLess(a, b *ir.SystemFact, phase func(*ir.SystemFact) ir.Phase) bool {
	pa, pb := phase(a).Order, phase(b).Order
	if pa != pb {
		return pa < pb
	}
	return a.Type.FullName < b.Type.FullName
}

// SystemView feeds the system template.
type SystemView struct {
	Namespace  string
	Name       string
	FullName   string
	Interfaces []string
	Contexts   []ContextRef
	Triggers   []TriggerView
	EntityIs   []string // component short names
	Initialize ir.Phase
	Execute    ir.Phase
	Reactive   ir.Phase
}

// TriggerView is one collector entry of a reactive system.
type TriggerView struct {
	Component string // short name
	FullName  string
	Events    []string // Added, Changed, Set, Removed
}

// NewSystemView flattens an extended system.
func NewSystemView(s *combine.ExtendedSystem) SystemView {
	f := s.Fact
	v := SystemView{
		Namespace:  f.Type.Namespace,
		Name:       f.Type.Name,
		FullName:   f.Type.FullName,
		Contexts:   contextRefs(s.Contexts),
		Initialize: f.Initialize,
		Execute:    f.Execute,
		Reactive:   f.Reactive,
	}
	if f.Initialize.Enabled {
		v.Interfaces = append(v.Interfaces, "Entitas.IInitializeSystem")
	}
	if f.Execute.Enabled {
		v.Interfaces = append(v.Interfaces, "Entitas.IExecuteSystem")
	}
	if f.Reactive.Enabled {
		v.Interfaces = append(v.Interfaces, "Entitas.IReactiveSystem")
	}
	for _, tr := range s.Triggers {
		tv := TriggerView{Component: tr.Component.Type.Short(), FullName: tr.Component.Type.FullName}
		for _, h := range ir.HooksFor(tr.Kind) {
			tv.Events = append(tv.Events, strings.TrimPrefix(h.String(), "On"))
		}
		v.Triggers = append(v.Triggers, tv)
	}
	for _, c := range s.EntityIs {
		v.EntityIs = append(v.EntityIs, c.Type.Short())
	}
	return v
}

// FeatureView feeds the feature template.
type FeatureView struct {
	Namespace  string
	Name       string
	FullName   string
	Components []string
	Systems    []string
	Contexts   []ContextRef
}

// NewFeatureView flattens an extended feature.
func NewFeatureView(f *combine.ExtendedFeature) FeatureView {
	v := FeatureView{
		Namespace: f.Fact.Type.Namespace,
		Name:      f.Fact.Type.Name,
		FullName:  f.Fact.Type.FullName,
		Systems:   fullNames(f.Systems),
		Contexts:  contextRefs(f.Contexts),
	}
	for _, c := range f.Components {
		v.Components = append(v.Components, c.Type.FullName)
	}
	return v
}

// ListenerView feeds the listener template.
type ListenerView struct {
	Namespace  string
	Name       string
	FullName   string
	Component  string
	Interfaces []ListenerCall
	Contexts   []ContextRef
}

// NewListenerView flattens an extended listener.
func NewListenerView(l *combine.ExtendedListener) ListenerView {
	f := l.Fact
	v := ListenerView{
		Namespace: f.Type.Namespace,
		Name:      f.Type.Name,
		FullName:  f.Type.FullName,
		Component: l.Component.Type.FullName,
		Contexts:  contextRefs(l.Contexts),
	}
	for _, ctx := range l.Contexts.Items() {
		for _, h := range ir.HooksFor(f.Kind) {
			v.Interfaces = append(v.Interfaces, ListenerCall{
				Listener:  f.Type.FullName,
				Namespace: ctx.Namespace,
				Interface: ListenerInterface(ctx, l.Component.Type, f.Target, h),
				Method:    ListenerMethod(l.Component.Type, f.Target, h),
				Self:      f.Target == ir.TargetSelf,
			})
		}
	}
	return v
}
