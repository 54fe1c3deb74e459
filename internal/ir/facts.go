package ir

import (
	"cmp"
	"slices"
)

// Fact is the value-semantic summary of one declaration. Facts are immutable
// once published; the fact store and the combination engine share instances.
type Fact interface {
	Category() Category
	Identity() TypeIdentity
	// Canonical returns the fact's canonical form. Two facts are EqualFact
	// exactly when their canonical forms are equal.
	Canonical() IRObject
	EqualFact(other Fact) bool
}

// FieldFact is one generated component field.
type FieldFact struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// EventFact is one event declaration on a component.
type EventFact struct {
	Target EventTarget `json:"target"`
	Kind   EventKind   `json:"kind"`
	Order  int64       `json:"order"`
}

func compareEvents(a, b EventFact) int {
	if c := cmp.Compare(a.Target, b.Target); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Order, b.Order)
}

// NormalizeEvents returns the events sorted by (target, kind, order) with
// duplicates removed. The input is not modified.
func NormalizeEvents(events []EventFact) []EventFact {
	if len(events) == 0 {
		return nil
	}
	out := slices.Clone(events)
	slices.SortFunc(out, compareEvents)
	return slices.Compact(out)
}

// IndexSpec selects the generated index for a component.
type IndexSpec struct {
	Kind    IndexKind `json:"kind"`
	MaxSize int64     `json:"max_size,omitempty"`
}

// Phase is one independently configured system phase.
type Phase struct {
	Enabled bool           `json:"enabled"`
	Stage   ExecutionPhase `json:"stage"`
	Order   int64          `json:"order"`
}

func (p Phase) canonical() IRObject {
	return IRObject{
		"enabled": IRBool(p.Enabled),
		"stage":   IRString(p.Stage.String()),
		"order":   IRInt(p.Order),
	}
}

// Trigger names a component and the events a reactive system reacts to.
type Trigger struct {
	Component TypeIdentity `json:"component"`
	Kind      EventKind    `json:"kind"`
}

// ComponentFact describes a component declaration.
type ComponentFact struct {
	Type           TypeIdentity `json:"type"`
	Fields         []FieldFact  `json:"fields,omitempty"`
	Events         []EventFact  `json:"events,omitempty"`
	Unique         bool         `json:"unique,omitempty"`
	Index          IndexSpec    `json:"index"`
	CustomIndex    string       `json:"custom_index,omitempty"`
	Cleanup        CleanupMode  `json:"cleanup"`
	ManualContexts IdentitySet  `json:"-"`
}

func (f *ComponentFact) Category() Category     { return CategoryComponent }
func (f *ComponentFact) Identity() TypeIdentity { return f.Type }

// Equal compares by value. Fields are order-significant; events were
// normalized at extraction.
func (f *ComponentFact) Equal(o *ComponentFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		slices.Equal(f.Fields, o.Fields) &&
		slices.Equal(f.Events, o.Events) &&
		f.Unique == o.Unique &&
		f.Index == o.Index &&
		f.CustomIndex == o.CustomIndex &&
		f.Cleanup == o.Cleanup &&
		f.ManualContexts.Equal(o.ManualContexts)
}

func (f *ComponentFact) EqualFact(other Fact) bool {
	o, ok := other.(*ComponentFact)
	return ok && f.Equal(o)
}

func (f *ComponentFact) Canonical() IRObject {
	fields := make(IRArray, len(f.Fields))
	for i, fld := range f.Fields {
		fields[i] = IRObject{"type": IRString(fld.Type), "name": IRString(fld.Name)}
	}
	events := make(IRArray, len(f.Events))
	for i, ev := range f.Events {
		events[i] = IRObject{
			"target": IRString(ev.Target.String()),
			"kind":   IRInt(int64(ev.Kind)),
			"order":  IRInt(ev.Order),
		}
	}
	return IRObject{
		"type":         IRString(f.Type.FullName),
		"fields":       fields,
		"events":       events,
		"unique":       IRBool(f.Unique),
		"index_kind":   IRString(f.Index.Kind.String()),
		"index_max":    IRInt(f.Index.MaxSize),
		"custom_index": IRString(f.CustomIndex),
		"cleanup":      IRString(f.Cleanup.String()),
		"contexts":     f.ManualContexts.Canonical(),
	}
}

// ContextFact describes a context declaration and the members it lists.
type ContextFact struct {
	Type       TypeIdentity `json:"type"`
	Components IdentitySet  `json:"-"`
	Systems    IdentitySet  `json:"-"`
	Features   IdentitySet  `json:"-"`
}

func (f *ContextFact) Category() Category     { return CategoryContext }
func (f *ContextFact) Identity() TypeIdentity { return f.Type }

func (f *ContextFact) Equal(o *ContextFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		f.Components.Equal(o.Components) &&
		f.Systems.Equal(o.Systems) &&
		f.Features.Equal(o.Features)
}

func (f *ContextFact) EqualFact(other Fact) bool {
	o, ok := other.(*ContextFact)
	return ok && f.Equal(o)
}

func (f *ContextFact) Canonical() IRObject {
	return IRObject{
		"type":       IRString(f.Type.FullName),
		"components": f.Components.Canonical(),
		"systems":    f.Systems.Canonical(),
		"features":   f.Features.Canonical(),
	}
}

// SystemFact describes a system declaration. The three phases are
// independent; a system may enable any combination of them.
type SystemFact struct {
	Type           TypeIdentity `json:"type"`
	Initialize     Phase        `json:"initialize"`
	Execute        Phase        `json:"execute"`
	Reactive       Phase        `json:"reactive"`
	Triggers       []Trigger    `json:"triggers,omitempty"`
	EntityIs       IdentitySet  `json:"-"`
	ManualContexts IdentitySet  `json:"-"`
}

func (f *SystemFact) Category() Category     { return CategorySystem }
func (f *SystemFact) Identity() TypeIdentity { return f.Type }

func (f *SystemFact) Equal(o *SystemFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		f.Initialize == o.Initialize &&
		f.Execute == o.Execute &&
		f.Reactive == o.Reactive &&
		slices.EqualFunc(f.Triggers, o.Triggers, func(a, b Trigger) bool {
			return a.Component.Equal(b.Component) && a.Kind == b.Kind
		}) &&
		f.EntityIs.Equal(o.EntityIs) &&
		f.ManualContexts.Equal(o.ManualContexts)
}

func (f *SystemFact) EqualFact(other Fact) bool {
	o, ok := other.(*SystemFact)
	return ok && f.Equal(o)
}

func (f *SystemFact) Canonical() IRObject {
	triggers := make(IRArray, len(f.Triggers))
	for i, tr := range f.Triggers {
		triggers[i] = IRObject{
			"component": IRString(tr.Component.FullName),
			"kind":      IRInt(int64(tr.Kind)),
		}
	}
	return IRObject{
		"type":       IRString(f.Type.FullName),
		"initialize": f.Initialize.canonical(),
		"execute":    f.Execute.canonical(),
		"reactive":   f.Reactive.canonical(),
		"triggers":   triggers,
		"entity_is":  f.EntityIs.Canonical(),
		"contexts":   f.ManualContexts.Canonical(),
	}
}

// TriggersOn returns the union of event bits with which the system reacts to
// the named component.
func (f *SystemFact) TriggersOn(component string) EventKind {
	var kind EventKind
	for _, tr := range f.Triggers {
		if tr.Component.FullName == component {
			kind |= tr.Kind
		}
	}
	return kind
}

// FeatureFact bundles components and systems that contexts can absorb.
type FeatureFact struct {
	Type           TypeIdentity `json:"type"`
	Components     IdentitySet  `json:"-"`
	Systems        IdentitySet  `json:"-"`
	ManualContexts IdentitySet  `json:"-"`
}

func (f *FeatureFact) Category() Category     { return CategoryFeature }
func (f *FeatureFact) Identity() TypeIdentity { return f.Type }

func (f *FeatureFact) Equal(o *FeatureFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		f.Components.Equal(o.Components) &&
		f.Systems.Equal(o.Systems) &&
		f.ManualContexts.Equal(o.ManualContexts)
}

func (f *FeatureFact) EqualFact(other Fact) bool {
	o, ok := other.(*FeatureFact)
	return ok && f.Equal(o)
}

func (f *FeatureFact) Canonical() IRObject {
	return IRObject{
		"type":       IRString(f.Type.FullName),
		"components": f.Components.Canonical(),
		"systems":    f.Systems.Canonical(),
		"contexts":   f.ManualContexts.Canonical(),
	}
}

// GroupFact is a named entity membership predicate.
type GroupFact struct {
	Type   TypeIdentity `json:"type"`
	AllOf  IdentitySet  `json:"-"`
	AnyOf  IdentitySet  `json:"-"`
	NoneOf IdentitySet  `json:"-"`
}

func (f *GroupFact) Category() Category     { return CategoryGroup }
func (f *GroupFact) Identity() TypeIdentity { return f.Type }

// Constraints returns the total number of component constraints.
func (f *GroupFact) Constraints() int {
	return f.AllOf.Len() + f.AnyOf.Len() + f.NoneOf.Len()
}

// Mentions reports whether the group constrains the named component.
func (f *GroupFact) Mentions(component string) bool {
	return f.AllOf.ContainsName(component) ||
		f.AnyOf.ContainsName(component) ||
		f.NoneOf.ContainsName(component)
}

// Components returns every component the group constrains.
func (f *GroupFact) Components() IdentitySet {
	return f.AllOf.Union(f.AnyOf).Union(f.NoneOf)
}

func (f *GroupFact) Equal(o *GroupFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		f.AllOf.Equal(o.AllOf) &&
		f.AnyOf.Equal(o.AnyOf) &&
		f.NoneOf.Equal(o.NoneOf)
}

func (f *GroupFact) EqualFact(other Fact) bool {
	o, ok := other.(*GroupFact)
	return ok && f.Equal(o)
}

func (f *GroupFact) Canonical() IRObject {
	return IRObject{
		"type":    IRString(f.Type.FullName),
		"all_of":  f.AllOf.Canonical(),
		"any_of":  f.AnyOf.Canonical(),
		"none_of": f.NoneOf.Canonical(),
	}
}

// ListenerFact is a user type subscribing to a component event.
type ListenerFact struct {
	Type      TypeIdentity `json:"type"`
	Component TypeIdentity `json:"component"`
	Target    EventTarget  `json:"target"`
	Kind      EventKind    `json:"kind"`
}

func (f *ListenerFact) Category() Category     { return CategoryListener }
func (f *ListenerFact) Identity() TypeIdentity { return f.Type }

func (f *ListenerFact) Equal(o *ListenerFact) bool {
	if f == o {
		return true
	}
	if f == nil || o == nil {
		return false
	}
	return f.Type.Equal(o.Type) &&
		f.Component.Equal(o.Component) &&
		f.Target == o.Target &&
		f.Kind == o.Kind
}

func (f *ListenerFact) EqualFact(other Fact) bool {
	o, ok := other.(*ListenerFact)
	return ok && f.Equal(o)
}

func (f *ListenerFact) Canonical() IRObject {
	return IRObject{
		"type":      IRString(f.Type.FullName),
		"component": IRString(f.Component.FullName),
		"target":    IRString(f.Target.String()),
		"kind":      IRInt(int64(f.Kind)),
	}
}
