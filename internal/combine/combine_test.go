package combine

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ecsgen/internal/factstore"
	"github.com/roach88/ecsgen/internal/ir"
)

func id(full string) ir.TypeIdentity { return ir.ParseTypeIdentity(full) }

func set(names ...string) ir.IdentitySet {
	ids := make([]ir.TypeIdentity, len(names))
	for i, n := range names {
		ids[i] = id(n)
	}
	return ir.NewIdentitySet(ids...)
}

func comp(name string, manual ...string) *ir.ComponentFact {
	return &ir.ComponentFact{Type: id(name), ManualContexts: set(manual...)}
}

func ctxFact(name string, comps, systems, features []string) *ir.ContextFact {
	return &ir.ContextFact{
		Type:       id(name),
		Components: set(comps...),
		Systems:    set(systems...),
		Features:   set(features...),
	}
}

func reactive(name string, order int64, triggers map[string]ir.EventKind, manual ...string) *ir.SystemFact {
	s := &ir.SystemFact{
		Type:           id(name),
		Reactive:       ir.Phase{Enabled: true, Order: order},
		ManualContexts: set(manual...),
	}
	names := make([]string, 0, len(triggers))
	for n := range triggers {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		s.Triggers = append(s.Triggers, ir.Trigger{Component: id(n), Kind: triggers[n]})
	}
	return s
}

func names[T ir.Fact](facts []T) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Identity().FullName
	}
	return out
}

func combine(t *testing.T, snap factstore.Snapshot) *Result {
	t.Helper()
	res, err := Combine(context.Background(), snap)
	require.NoError(t, err)
	return res
}

func findComponent(r *Result, name string) *ExtendedComponent {
	for _, c := range r.Components {
		if c.Fact.Type.FullName == name {
			return c
		}
	}
	return nil
}

func findEdge(r *Result, comp, context string) *ComponentInContext {
	for _, e := range r.Edges {
		if e.Component.Type.FullName == comp && e.Context.Type.FullName == context {
			return e
		}
	}
	return nil
}

func TestComponentContextOrJoin(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			comp("Game.PositionComponent", "Game.UiContext"),
			comp("Game.LonelyComponent"),
		},
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", []string{"Game.PositionComponent", "Game.MissingComponent"}, nil, nil),
			ctxFact("Game.UiContext", nil, nil, nil),
			ctxFact("Game.InputContext", nil, nil, nil),
		},
	}

	r := combine(t, snap)

	pos := findComponent(r, "Game.PositionComponent")
	require.NotNil(t, pos)
	assert.Equal(t, []string{"Game.GameContext", "Game.UiContext"}, pos.Contexts.FullNames(),
		"listed by one context, naming another: both")

	lonely := findComponent(r, "Game.LonelyComponent")
	require.NotNil(t, lonely)
	assert.True(t, lonely.Contexts.Empty())

	require.Len(t, r.Contexts, 3)
	game := r.Contexts[0]
	assert.Equal(t, "Game.GameContext", game.Fact.Type.FullName)
	assert.Equal(t, []string{"Game.PositionComponent"}, names(game.Components), "unresolved references are dropped")
	assert.Empty(t, r.Contexts[1].Components, "InputContext has no members")

	assert.Len(t, r.Edges, 2)
	assert.Empty(t, r.Diagnostics)
}

func TestSystemContextOrJoin(t *testing.T) {
	snap := factstore.Snapshot{
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", nil, []string{"Game.ListedSystem"}, nil),
		},
		Systems: []*ir.SystemFact{
			{Type: id("Game.ListedSystem"), Execute: ir.Phase{Enabled: true}},
			{Type: id("Game.ManualSystem"), Execute: ir.Phase{Enabled: true}, ManualContexts: set("Game.GameContext")},
			{Type: id("Game.OtherSystem"), Execute: ir.Phase{Enabled: true}},
		},
	}

	r := combine(t, snap)
	assert.Equal(t, []string{"Game.ListedSystem", "Game.ManualSystem"}, names(r.Contexts[0].Systems))
	require.Len(t, r.Systems, 3)
	for _, s := range r.Systems {
		if s.Fact.Type.FullName == "Game.OtherSystem" {
			assert.True(t, s.Contexts.Empty())
		} else {
			assert.Equal(t, []string{"Game.GameContext"}, s.Contexts.FullNames())
		}
	}
}

func TestFeatureAbsorption(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			comp("Game.VelocityComponent"),
			comp("Game.MassComponent"),
		},
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", nil, nil, []string{"Game.PhysicsFeature"}),
			ctxFact("Game.UiContext", nil, nil, nil),
		},
		Systems: []*ir.SystemFact{
			{Type: id("Game.MoveSystem"), Execute: ir.Phase{Enabled: true}},
		},
		Features: []*ir.FeatureFact{
			{Type: id("Game.PhysicsFeature"), Components: set("Game.VelocityComponent"), Systems: set("Game.MoveSystem")},
			{Type: id("Game.MassFeature"), Components: set("Game.MassComponent"), ManualContexts: set("Game.GameContext")},
		},
	}

	r := combine(t, snap)

	game := r.Contexts[0]
	require.Equal(t, "Game.GameContext", game.Fact.Type.FullName)
	assert.Equal(t, []string{"Game.MassFeature", "Game.PhysicsFeature"}, names(game.Features),
		"listed feature and feature naming the context are both absorbed")
	assert.Equal(t, []string{"Game.MassComponent", "Game.VelocityComponent"}, names(game.Components))
	assert.Equal(t, []string{"Game.MoveSystem"}, names(game.Systems))
	assert.Empty(t, r.Contexts[1].Components)

	vel := findComponent(r, "Game.VelocityComponent")
	assert.Equal(t, []string{"Game.GameContext"}, vel.Contexts.FullNames())

	require.Len(t, r.Features, 2)
	for _, f := range r.Features {
		assert.Equal(t, []string{"Game.GameContext"}, f.Contexts.FullNames())
	}
}

func TestEventWiring(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{comp("Game.PositionComponent")},
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", []string{"Game.PositionComponent"},
				[]string{"Game.AddRemoveSystem", "Game.ChangeSystem", "Game.ExecuteOnlySystem"}, nil),
		},
		Systems: []*ir.SystemFact{
			reactive("Game.AddRemoveSystem", 0, map[string]ir.EventKind{"Game.PositionComponent": ir.EventAddedOrRemoved}),
			reactive("Game.ChangeSystem", 0, map[string]ir.EventKind{"Game.PositionComponent": ir.EventChanged | ir.EventSet}),
			reactive("Game.ElsewhereSystem", 0, map[string]ir.EventKind{"Game.PositionComponent": ir.EventAdded}),
			{
				Type:     id("Game.ExecuteOnlySystem"),
				Execute:  ir.Phase{Enabled: true},
				Triggers: []ir.Trigger{{Component: id("Game.PositionComponent"), Kind: ir.EventAdded}},
			},
		},
	}

	r := combine(t, snap)
	e := findEdge(r, "Game.PositionComponent", "Game.GameContext")
	require.NotNil(t, e)

	assert.Equal(t, []string{"Game.AddRemoveSystem"}, names(e.OnAdded),
		"non-reactive systems and systems outside the context are not wired")
	assert.Equal(t, []string{"Game.AddRemoveSystem"}, names(e.OnRemoved))
	assert.Equal(t, []string{"Game.ChangeSystem"}, names(e.OnChanged))
	assert.Equal(t, []string{"Game.ChangeSystem"}, names(e.OnSet))
	assert.Equal(t, e.OnAdded, e.Hook(ir.HookAdded))
}

func TestReactiveSystemsSortedByOrder(t *testing.T) {
	trig := map[string]ir.EventKind{"Game.PositionComponent": ir.EventAdded}
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{comp("Game.PositionComponent", "Game.GameContext")},
		Contexts:   []*ir.ContextFact{ctxFact("Game.GameContext", nil, nil, nil)},
		Systems: []*ir.SystemFact{
			reactive("Game.ASystem", 10, trig, "Game.GameContext"),
			reactive("Game.BSystem", 1, trig, "Game.GameContext"),
			reactive("Game.CSystem", 1, trig, "Game.GameContext"),
		},
	}

	r := combine(t, snap)
	e := findEdge(r, "Game.PositionComponent", "Game.GameContext")
	require.NotNil(t, e)
	assert.Equal(t, []string{"Game.BSystem", "Game.CSystem", "Game.ASystem"}, names(e.OnAdded))
	assert.Equal(t, []string{"Game.BSystem", "Game.CSystem", "Game.ASystem"}, names(r.Contexts[0].Systems))

	sys := make([]string, len(r.Systems))
	for i, s := range r.Systems {
		sys[i] = s.Fact.Type.FullName
	}
	assert.Equal(t, []string{"Game.BSystem", "Game.CSystem", "Game.ASystem"}, sys)
}

func TestDeriveGroupHook(t *testing.T) {
	moving := &ir.GroupFact{
		Type:   id("Game.MovingGroup"),
		AllOf:  set("Game.PositionComponent", "Game.VelocityComponent"),
		NoneOf: set("Game.FrozenComponent"),
	}
	single := &ir.GroupFact{Type: id("Game.FrozenGroup"), NoneOf: set("Game.FrozenComponent")}
	anyOnly := &ir.GroupFact{Type: id("Game.VisibleGroup"), AnyOf: set("Game.SpriteComponent")}

	tests := []struct {
		name      string
		group     *ir.GroupFact
		component string
		onAdded   GroupAction
		onRemoved GroupAction
	}{
		{"all-of member", moving, "Game.PositionComponent",
			GroupAction{GroupAdd, IfMatches}, GroupAction{GroupRemove, UnlessMatches}},
		{"none-of member inverts polarity", moving, "Game.FrozenComponent",
			GroupAction{GroupRemove, Always}, GroupAction{GroupAdd, IfMatches}},
		{"single none-of constraint", single, "Game.FrozenComponent",
			GroupAction{GroupRemove, Always}, GroupAction{GroupAdd, Always}},
		{"single any-of constraint", anyOnly, "Game.SpriteComponent",
			GroupAction{GroupAdd, Always}, GroupAction{GroupRemove, Always}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DeriveGroupHook(tt.group, tt.component)
			assert.Same(t, tt.group, h.Group)
			assert.Equal(t, tt.onAdded, h.OnAdded)
			assert.Equal(t, tt.onRemoved, h.OnRemoved)
		})
	}
}

func TestGroupsApplyWhereAllComponentsResolve(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			comp("Game.PositionComponent", "Game.GameContext", "Game.UiContext"),
			comp("Game.FrozenComponent", "Game.GameContext"),
		},
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", nil, nil, nil),
			ctxFact("Game.UiContext", nil, nil, nil),
		},
		Groups: []*ir.GroupFact{
			{Type: id("Game.ActiveGroup"), AllOf: set("Game.PositionComponent"), NoneOf: set("Game.FrozenComponent")},
			{Type: id("Game.GhostGroup"), AllOf: set("Game.PositionComponent", "Game.MissingComponent")},
		},
	}

	r := combine(t, snap)

	require.Len(t, r.Groups, 2)
	assert.Equal(t, []string{"Game.GameContext"}, r.Groups[0].Contexts.FullNames())
	assert.True(t, r.Groups[1].Contexts.Empty(), "a group naming an unknown component applies nowhere")

	inGame := findEdge(r, "Game.FrozenComponent", "Game.GameContext")
	require.NotNil(t, inGame)
	require.Len(t, inGame.Groups, 1)
	assert.Equal(t, GroupAction{GroupRemove, Always}, inGame.Groups[0].OnAdded)
	assert.Equal(t, GroupAction{GroupAdd, IfMatches}, inGame.Groups[0].OnRemoved)

	inUi := findEdge(r, "Game.PositionComponent", "Game.UiContext")
	require.NotNil(t, inUi)
	assert.Empty(t, inUi.Groups, "FrozenComponent is not in UiContext")

	assert.Equal(t, []string{"Game.ActiveGroup"}, names(r.Contexts[0].Groups))
}

func TestListenersFollowTheirComponent(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{comp("Game.HealthComponent", "Game.GameContext")},
		Contexts:   []*ir.ContextFact{ctxFact("Game.GameContext", nil, nil, nil)},
		Listeners: []*ir.ListenerFact{
			{Type: id("Game.HealthBar"), Component: id("Game.HealthComponent"), Kind: ir.EventAdded},
			{Type: id("Game.Orphan"), Component: id("Game.MissingComponent"), Kind: ir.EventAdded},
		},
	}

	r := combine(t, snap)
	require.Len(t, r.Listeners, 1)
	assert.Equal(t, []string{"Game.GameContext"}, r.Listeners[0].Contexts.FullNames())

	e := findEdge(r, "Game.HealthComponent", "Game.GameContext")
	require.NotNil(t, e)
	assert.Equal(t, []string{"Game.HealthBar"}, names(e.Listeners))
}

func TestAmbiguousNamesAreExcluded(t *testing.T) {
	a := comp("Game.PositionComponent", "Game.GameContext")
	b := comp("Game.PositionComponent")
	same1 := comp("Game.VelocityComponent", "Game.GameContext")
	same2 := comp("Game.VelocityComponent", "Game.GameContext")

	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{a, b, same1, same2},
		Contexts:   []*ir.ContextFact{ctxFact("Game.GameContext", nil, nil, nil)},
	}

	r := combine(t, snap)
	require.Len(t, r.Components, 1, "equal duplicates collapse, different ones are dropped")
	assert.Equal(t, "Game.VelocityComponent", r.Components[0].Fact.Type.FullName)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, "ambiguous", r.Diagnostics[0].Kind)
	assert.Equal(t, "Game.PositionComponent", r.Diagnostics[0].Subject)
}

func TestCombineOrderIndependent(t *testing.T) {
	trig := map[string]ir.EventKind{"Game.PositionComponent": ir.EventAddedOrRemoved}
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			comp("Game.PositionComponent"),
			comp("Game.VelocityComponent", "Game.GameContext"),
			comp("Game.FrozenComponent", "Game.GameContext"),
		},
		Contexts: []*ir.ContextFact{
			ctxFact("Game.GameContext", []string{"Game.PositionComponent"}, []string{"Game.MoveSystem"}, nil),
			ctxFact("Game.UiContext", nil, nil, []string{"Game.PhysicsFeature"}),
		},
		Systems: []*ir.SystemFact{
			reactive("Game.MoveSystem", 2, trig),
			reactive("Game.RenderSystem", 1, trig, "Game.GameContext"),
		},
		Features: []*ir.FeatureFact{
			{Type: id("Game.PhysicsFeature"), Components: set("Game.VelocityComponent")},
		},
		Groups: []*ir.GroupFact{
			{Type: id("Game.MovingGroup"), AllOf: set("Game.PositionComponent", "Game.VelocityComponent"), NoneOf: set("Game.FrozenComponent")},
		},
	}

	reversed := factstore.Snapshot{
		Components: slices.Clone(snap.Components),
		Contexts:   slices.Clone(snap.Contexts),
		Systems:    slices.Clone(snap.Systems),
		Features:   slices.Clone(snap.Features),
		Groups:     slices.Clone(snap.Groups),
	}
	slices.Reverse(reversed.Components)
	slices.Reverse(reversed.Contexts)
	slices.Reverse(reversed.Systems)

	assert.Equal(t, summarize(combine(t, snap)), summarize(combine(t, reversed)))
}

// summarize renders a result as plain strings for comparison.
func summarize(r *Result) []string {
	var out []string
	for _, c := range r.Components {
		out = append(out, fmt.Sprintf("component %s %v", c.Fact.Type, c.Contexts.FullNames()))
	}
	for _, c := range r.Contexts {
		out = append(out, fmt.Sprintf("context %s %v %v %v %v", c.Fact.Type,
			names(c.Components), names(c.Systems), names(c.Features), names(c.Groups)))
	}
	for _, s := range r.Systems {
		out = append(out, fmt.Sprintf("system %s %v", s.Fact.Type, s.Contexts.FullNames()))
	}
	for _, e := range r.Edges {
		out = append(out, fmt.Sprintf("edge %s/%s %v %v %v %v %d", e.Component.Type, e.Context.Type,
			names(e.OnAdded), names(e.OnChanged), names(e.OnSet), names(e.OnRemoved), len(e.Groups)))
	}
	return out
}

func TestCombineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Combine(ctx, factstore.Snapshot{Components: []*ir.ComponentFact{comp("Game.AComponent")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuardRecordsAbortedTuple(t *testing.T) {
	c := &combiner{}
	ok := c.guard("Game.BadComponent in Game.GameContext", func() { panic("nil fact") })

	assert.False(t, ok)
	require.Len(t, c.diags, 1)
	assert.Equal(t, "aborted", c.diags[0].Kind)
	assert.Contains(t, c.diags[0].Message, "nil fact")
}
