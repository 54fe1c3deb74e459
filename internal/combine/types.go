package combine

import "github.com/roach88/ecsgen/internal/ir"

// Result is the joined view of one fact snapshot. Every collection is
// sorted; systems by (reactive order, full name), everything else by full
// name.
type Result struct {
	Components  []*ExtendedComponent
	Contexts    []*ExtendedContext
	Systems     []*ExtendedSystem
	Features    []*ExtendedFeature
	Groups      []*ExtendedGroup
	Listeners   []*ExtendedListener
	Edges       []*ComponentInContext
	Diagnostics []Diagnostic
}

// ExtendedComponent is a component and the contexts it resolves into.
type ExtendedComponent struct {
	Fact     *ir.ComponentFact
	Contexts ir.IdentitySet
}

// ExtendedContext is a context with its absorbed features and every member
// resolved into it.
type ExtendedContext struct {
	Fact       *ir.ContextFact
	Features   []*ir.FeatureFact
	Components []*ir.ComponentFact
	Systems    []*ir.SystemFact
	Groups     []*ir.GroupFact
}

// ExtendedSystem is a system with its contexts and resolved references.
// Unresolved trigger and entity-is references are dropped.
type ExtendedSystem struct {
	Fact     *ir.SystemFact
	Contexts ir.IdentitySet
	Triggers []ResolvedTrigger
	EntityIs []*ir.ComponentFact
}

// ResolvedTrigger is a trigger whose component exists.
type ResolvedTrigger struct {
	Component *ir.ComponentFact
	Kind      ir.EventKind
}

// ExtendedFeature is a feature with its resolved members and the contexts
// that absorbed it.
type ExtendedFeature struct {
	Fact       *ir.FeatureFact
	Components []*ir.ComponentFact
	Systems    []*ir.SystemFact
	Contexts   ir.IdentitySet
}

// ExtendedGroup is a group and the contexts it applies to.
type ExtendedGroup struct {
	Fact       *ir.GroupFact
	Components []*ir.ComponentFact
	Contexts   ir.IdentitySet
}

// ExtendedListener is a listener and the contexts of its component.
type ExtendedListener struct {
	Fact      *ir.ListenerFact
	Component *ir.ComponentFact
	Contexts  ir.IdentitySet
}

// ComponentInContext is one component × context edge with everything the
// generated entity accessors must call.
type ComponentInContext struct {
	Component *ir.ComponentFact
	Context   *ir.ContextFact
	// Reactive systems per hook, sorted by (reactive order, full name).
	OnAdded   []*ir.SystemFact
	OnChanged []*ir.SystemFact
	OnSet     []*ir.SystemFact
	OnRemoved []*ir.SystemFact
	Groups    []GroupHook
	Listeners []*ir.ListenerFact
}

// Hook returns the systems wired into h.
func (e *ComponentInContext) Hook(h ir.Hook) []*ir.SystemFact {
	switch h {
	case ir.HookAdded:
		return e.OnAdded
	case ir.HookChanged:
		return e.OnChanged
	case ir.HookSet:
		return e.OnSet
	case ir.HookRemoved:
		return e.OnRemoved
	}
	return nil
}

func (e *ComponentInContext) hookSlot(h ir.Hook) *[]*ir.SystemFact {
	switch h {
	case ir.HookAdded:
		return &e.OnAdded
	case ir.HookChanged:
		return &e.OnChanged
	case ir.HookSet:
		return &e.OnSet
	case ir.HookRemoved:
		return &e.OnRemoved
	}
	return nil
}

// GroupOp is the membership mutation a group hook performs.
type GroupOp int

const (
	GroupAdd GroupOp = iota + 1
	GroupRemove
)

func (o GroupOp) String() string {
	if o == GroupRemove {
		return "remove"
	}
	return "add"
}

// GroupCondition qualifies a group mutation.
type GroupCondition int

const (
	// Always: the mutation is unconditional.
	Always GroupCondition = iota
	// IfMatches: only when the entity satisfies the group predicate.
	IfMatches
	// UnlessMatches: only when the entity no longer satisfies it.
	UnlessMatches
)

func (c GroupCondition) String() string {
	switch c {
	case IfMatches:
		return "if_matches"
	case UnlessMatches:
		return "unless_matches"
	}
	return "always"
}

// GroupAction is one guarded mutation.
type GroupAction struct {
	Op        GroupOp
	Condition GroupCondition
}

// GroupHook says how a component's add and remove paths update a group.
type GroupHook struct {
	Group     *ir.GroupFact
	OnAdded   GroupAction
	OnRemoved GroupAction
}

// Diagnostic reports input that was dropped during combination.
type Diagnostic struct {
	Kind    string `json:"kind"`    // "ambiguous" or "aborted"
	Subject string `json:"subject"` // full name or tuple description
	Message string `json:"message"`
}
