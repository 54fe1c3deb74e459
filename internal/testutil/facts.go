package testutil

import (
	"strings"

	"github.com/roach88/ecsgen/internal/ir"
)

// ID builds a type identity with the category suffix stripped into Prefix,
// the way extraction does.
func ID(fullName string, cat ir.Category) ir.TypeIdentity {
	return ir.ParseTypeIdentity(fullName, cat.Suffix())
}

func ids(cat ir.Category, names []string) ir.IdentitySet {
	out := make([]ir.TypeIdentity, len(names))
	for i, n := range names {
		out[i] = ID(n, cat)
	}
	return ir.NewIdentitySet(out...)
}

// Components builds an identity set of component names.
func Components(names ...string) ir.IdentitySet { return ids(ir.CategoryComponent, names) }

// Component builds a component fact. Fields are "type name" pairs.
func Component(fullName string, fields ...string) *ir.ComponentFact {
	c := &ir.ComponentFact{Type: ID(fullName, ir.CategoryComponent)}
	for _, f := range fields {
		typ, name, _ := strings.Cut(f, " ")
		c.Fields = append(c.Fields, ir.FieldFact{Type: typ, Name: name})
	}
	return c
}

// Context builds a context fact listing components.
func Context(fullName string, components ...string) *ir.ContextFact {
	return &ir.ContextFact{
		Type:       ID(fullName, ir.CategoryContext),
		Components: Components(components...),
	}
}

// ReactiveSystem builds a reactive system with one trigger.
func ReactiveSystem(fullName string, order int64, component string, kind ir.EventKind) *ir.SystemFact {
	return &ir.SystemFact{
		Type:     ID(fullName, ir.CategorySystem),
		Reactive: ir.Phase{Enabled: true, Order: order},
		Triggers: []ir.Trigger{{Component: ID(component, ir.CategoryComponent), Kind: kind}},
	}
}

// ExecuteSystem builds a system with only the execute phase enabled.
func ExecuteSystem(fullName string, order int64) *ir.SystemFact {
	return &ir.SystemFact{
		Type:    ID(fullName, ir.CategorySystem),
		Execute: ir.Phase{Enabled: true, Order: order},
	}
}

// Group builds an AllOf group.
func Group(fullName string, allOf ...string) *ir.GroupFact {
	return &ir.GroupFact{Type: ID(fullName, ir.CategoryGroup), AllOf: Components(allOf...)}
}

// Listener builds a listener on component.
func Listener(fullName, component string, target ir.EventTarget, kind ir.EventKind) *ir.ListenerFact {
	return &ir.ListenerFact{
		Type:      ID(fullName, ir.CategoryListener),
		Component: ID(component, ir.CategoryComponent),
		Target:    target,
		Kind:      kind,
	}
}

// Feature builds a feature bundling components and systems.
func Feature(fullName string, components, systems []string) *ir.FeatureFact {
	return &ir.FeatureFact{
		Type:       ID(fullName, ir.CategoryFeature),
		Components: Components(components...),
		Systems:    ids(ir.CategorySystem, systems),
	}
}
