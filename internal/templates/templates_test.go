package templates

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/factstore"
	"github.com/roach88/ecsgen/internal/ir"
)

func typeID(full string, cat ir.Category) ir.TypeIdentity {
	return ir.ParseTypeIdentity(full, cat.Suffix())
}

func compID(full string) ir.TypeIdentity { return typeID(full, ir.CategoryComponent) }

// demo is a Game context holding Position, a reactive MoveSystem, a group
// over Position and Velocity, and an Any listener on Position.
func demo(t *testing.T) *combine.Result {
	t.Helper()
	pos := &ir.ComponentFact{
		Type:   compID("Demo.PositionComponent"),
		Fields: []ir.FieldFact{{Type: "float", Name: "x"}, {Type: "float", Name: "y"}},
		Events: []ir.EventFact{{Target: ir.TargetAny, Kind: ir.EventAdded}},
		Index:  ir.IndexSpec{Kind: ir.IndexDictionary},
	}
	vel := &ir.ComponentFact{
		Type:    compID("Demo.VelocityComponent"),
		Fields:  []ir.FieldFact{{Type: "float", Name: "dx"}},
		Unique:  true,
		Cleanup: ir.CleanupDestroyEntity,
	}
	game := &ir.ContextFact{
		Type:       typeID("Demo.GameContext", ir.CategoryContext),
		Components: ir.NewIdentitySet(pos.Type, vel.Type),
		Systems:    ir.NewIdentitySet(typeID("Demo.MoveSystem", ir.CategorySystem)),
		Features:   ir.NewIdentitySet(typeID("Demo.MotionFeature", ir.CategoryFeature)),
	}
	move := &ir.SystemFact{
		Type:     typeID("Demo.MoveSystem", ir.CategorySystem),
		Execute:  ir.Phase{Enabled: true, Stage: ir.PhaseUpdate, Order: 2},
		Reactive: ir.Phase{Enabled: true, Stage: ir.PhaseUpdate},
		Triggers: []ir.Trigger{{Component: pos.Type, Kind: ir.EventAdded | ir.EventRemoved}},
		EntityIs: ir.NewIdentitySet(vel.Type),
	}
	movable := &ir.GroupFact{
		Type:  typeID("Demo.MovableGroup", ir.CategoryGroup),
		AllOf: ir.NewIdentitySet(pos.Type, vel.Type),
	}
	view := &ir.ListenerFact{
		Type:      typeID("Demo.ViewListener", ir.CategoryListener),
		Component: pos.Type,
		Target:    ir.TargetAny,
		Kind:      ir.EventAdded,
	}
	feature := &ir.FeatureFact{
		Type:       typeID("Demo.MotionFeature", ir.CategoryFeature),
		Components: ir.NewIdentitySet(pos.Type),
		Systems:    ir.NewIdentitySet(move.Type),
	}
	res, err := combine.Combine(context.Background(), factstore.Snapshot{
		Components: []*ir.ComponentFact{pos, vel},
		Contexts:   []*ir.ContextFact{game},
		Systems:    []*ir.SystemFact{move},
		Features:   []*ir.FeatureFact{feature},
		Groups:     []*ir.GroupFact{movable},
		Listeners:  []*ir.ListenerFact{view},
	})
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	return res
}

func edge(t *testing.T, r *combine.Result, comp string) *combine.ComponentInContext {
	t.Helper()
	for _, e := range r.Edges {
		if e.Component.Type.FullName == comp {
			return e
		}
	}
	t.Fatalf("no edge for %s", comp)
	return nil
}

func TestEngineParsesEveryTemplate(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	for _, name := range []string{
		ComponentDeclaration, ComponentContexts, ComponentEvents, ComponentIndex,
		ComponentCleanup, EntityExtension, ContextDeclaration, ContextSystems,
		SystemDeclaration, FeatureDeclaration, ListenerDeclaration, failure,
	} {
		assert.NotNil(t, e.tmpl.Lookup(name), name)
	}
}

func TestEntityExtension(t *testing.T) {
	r := demo(t)
	e := MustNewEngine()

	out, err := e.Render(EntityExtension, NewEntityView(edge(t, r, "Demo.PositionComponent")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, Header()))
	assert.Contains(t, out, "namespace Demo")
	assert.Contains(t, out, "public static class GamePositionEntityExtension")
	assert.Contains(t, out, "public static GameEntity SetPosition(this GameEntity entity, float x, float y)")
	assert.Contains(t, out, "component.x = x;")
	assert.Contains(t, out, "entity.Context.Collect<Demo.MoveSystem>(entity);")
	assert.Contains(t, out,
		"if (entity.HasPosition() && entity.HasVelocity()) entity.Context.Group<Demo.MovableGroup>().Add(entity);")
	assert.Contains(t, out,
		"if (!(entity.HasPosition() && entity.HasVelocity())) entity.Context.Group<Demo.MovableGroup>().Remove(entity);")
	assert.Contains(t, out,
		"entity.Context.NotifyListeners<Demo.IGameAnyPositionAddedListener>(l => l.OnAnyPositionAdded(entity));")
	assert.NotContains(t, out, "GetPositionEntity", "position is not unique")

	// Added path systems run before the removal block.
	added := strings.Index(out, "Collect<Demo.MoveSystem>")
	remove := strings.Index(out, "RemovePosition")
	assert.Less(t, added, remove)
}

func TestEntityExtensionUnique(t *testing.T) {
	r := demo(t)
	out, err := MustNewEngine().Render(EntityExtension, NewEntityView(edge(t, r, "Demo.VelocityComponent")))
	require.NoError(t, err)
	assert.Contains(t, out, "public static GameEntity GetVelocityEntity(this GameContext context)")
	assert.NotContains(t, out, "Collect<", "no system triggers on velocity")
}

func TestComponentTemplates(t *testing.T) {
	r := demo(t)
	e := MustNewEngine()
	var pos *combine.ExtendedComponent
	for _, c := range r.Components {
		if c.Fact.Type.Name == "PositionComponent" {
			pos = c
		}
	}
	require.NotNil(t, pos)
	v := NewComponentView(pos)

	decl, err := e.Render(ComponentDeclaration, v)
	require.NoError(t, err)
	assert.Contains(t, decl, "public interface IPositionContext { }")
	assert.Contains(t, decl, `FieldNames = { "x", "y" }`)
	assert.Contains(t, decl, `Contexts = { "Demo.GameContext" }`)

	ctxs, err := e.Render(ComponentContexts, v)
	require.NoError(t, err)
	assert.Contains(t, ctxs, "public partial class GameContext : Demo.IPositionContext { }")

	events, err := e.Render(ComponentEvents, v)
	require.NoError(t, err)
	assert.Contains(t, events, "public interface IGameAnyPositionAddedListener")
	assert.Contains(t, events, "void OnAnyPositionAdded(GameEntity entity);")
	assert.Contains(t, events, "public sealed class GameAnyPositionAddedListenerComponent")

	index, err := e.Render(ComponentIndex, v)
	require.NoError(t, err)
	assert.Contains(t, index, "public sealed partial class GamePositionIndex")
	assert.Contains(t, index, "Dictionary<float, System.Collections.Generic.HashSet<GameEntity>>")
	assert.Contains(t, index, "GetEntities(float key)")
}

func TestCustomIndexBodyIsInsertedVerbatim(t *testing.T) {
	c := &combine.ExtendedComponent{
		Fact: &ir.ComponentFact{
			Type:        compID("Demo.CellComponent"),
			Fields:      []ir.FieldFact{{Type: "int", Name: "cell"}},
			Index:       ir.IndexSpec{Kind: ir.IndexArray, MaxSize: 64},
			CustomIndex: "public int Size() => MaxSize;\n",
		},
		Contexts: ir.NewIdentitySet(typeID("Demo.GameContext", ir.CategoryContext)),
	}
	out, err := MustNewEngine().Render(ComponentIndex, NewComponentView(c))
	require.NoError(t, err)
	assert.Contains(t, out, "public const int MaxSize = 64;")
	assert.Contains(t, out, "    public int Size() => MaxSize;")
	assert.NotContains(t, out, "GetEntities")
}

func TestCleanupTemplate(t *testing.T) {
	r := demo(t)
	var vel *combine.ExtendedComponent
	for _, c := range r.Components {
		if c.Fact.Type.Name == "VelocityComponent" {
			vel = c
		}
	}
	require.NotNil(t, vel)
	out, err := MustNewEngine().Render(ComponentCleanup, NewComponentView(vel))
	require.NoError(t, err)
	assert.Contains(t, out, "public sealed class GameVelocityCleanupSystem : Entitas.ICleanupSystem")
	assert.Contains(t, out, "entity.Destroy();")
}

func TestContextTemplates(t *testing.T) {
	r := demo(t)
	e := MustNewEngine()
	require.Len(t, r.Contexts, 1)
	v := NewContextView(r.Contexts[0])

	decl, err := e.Render(ContextDeclaration, v)
	require.NoError(t, err)
	assert.Contains(t, decl, "public const int Position = 0;")
	assert.Contains(t, decl, "public const int Velocity = 1;")
	assert.Contains(t, decl, "public const int TotalComponents = 2;")
	assert.Contains(t, decl, `Features = { "Demo.MotionFeature" }`)
	assert.Contains(t, decl, "static bool MatchesMovableGroup(GameEntity entity) => entity.HasPosition() && entity.HasVelocity();")

	systems, err := e.Render(ContextSystems, v)
	require.NoError(t, err)
	assert.Contains(t, systems, "AddExecute(Entitas.ExecutionPhase.Update, new Demo.MoveSystem(context));")
	assert.Contains(t, systems, "AddReactive(Entitas.ExecutionPhase.Update, new Demo.MoveSystem(context));")
	assert.NotContains(t, systems, "AddInitialize")
}

func TestSystemFeatureListenerTemplates(t *testing.T) {
	r := demo(t)
	e := MustNewEngine()

	require.Len(t, r.Systems, 1)
	sys, err := e.Render(SystemDeclaration, NewSystemView(r.Systems[0]))
	require.NoError(t, err)
	assert.Contains(t, sys, "public sealed partial class MoveSystem : Entitas.IExecuteSystem, Entitas.IReactiveSystem")
	assert.Contains(t, sys, "public const int ExecuteOrder = 2;")
	assert.Contains(t, sys, `("Demo.PositionComponent", "Added|Removed"),`)
	assert.Contains(t, sys, "public bool Filter(GameEntity entity) => entity.HasVelocity();")
	assert.NotContains(t, sys, "InitializeOrder")

	require.Len(t, r.Features, 1)
	feat, err := e.Render(FeatureDeclaration, NewFeatureView(r.Features[0]))
	require.NoError(t, err)
	assert.Contains(t, feat, `Systems = { "Demo.MoveSystem" }`)

	require.Len(t, r.Listeners, 1)
	lis, err := e.Render(ListenerDeclaration, NewListenerView(r.Listeners[0]))
	require.NoError(t, err)
	assert.Contains(t, lis, "public partial class ViewListener : Demo.IGameAnyPositionAddedListener")
}

func TestGroupPredicate(t *testing.T) {
	g := &ir.GroupFact{
		Type:   typeID("Demo.MixedGroup", ir.CategoryGroup),
		AllOf:  ir.NewIdentitySet(compID("Demo.AComponent")),
		AnyOf:  ir.NewIdentitySet(compID("Demo.BComponent"), compID("Demo.CComponent")),
		NoneOf: ir.NewIdentitySet(compID("Demo.DComponent")),
	}
	assert.Equal(t, "entity.HasA() && (entity.HasB() || entity.HasC()) && !entity.HasD()", GroupPredicate(g))
}

func TestNoneOfGroupRendersInvertedMutations(t *testing.T) {
	g := &ir.GroupFact{
		Type:   typeID("Demo.IdleGroup", ir.CategoryGroup),
		AllOf:  ir.NewIdentitySet(compID("Demo.AComponent")),
		NoneOf: ir.NewIdentitySet(compID("Demo.BComponent")),
	}
	h := combine.DeriveGroupHook(g, "Demo.BComponent")
	added := groupCall(g, h.OnAdded)
	assert.Equal(t, GroupCall{Group: "Demo.IdleGroup", Method: "Remove"}, added)
	removed := groupCall(g, h.OnRemoved)
	assert.Equal(t, "Add", removed.Method)
	assert.Equal(t, "entity.HasA() && !entity.HasB()", removed.Guard)
}

func TestFailureUnit(t *testing.T) {
	out := MustNewEngine().Failure("Demo.Broken.g.cs", errors.New("bad */ input"))
	assert.True(t, strings.HasPrefix(out, Header()))
	assert.Contains(t, out, "ecsgen could not generate Demo.Broken.g.cs.")
	assert.Contains(t, out, "bad * / input")
	assert.Equal(t, 1, strings.Count(out, "*/"), "only the closing delimiter")
}

func TestRenderIsDeterministic(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir(t.TempDir()))
	e := MustNewEngine()

	first, err := e.Render(EntityExtension, NewEntityView(edge(t, demo(t), "Demo.PositionComponent")))
	require.NoError(t, err)
	require.NoError(t, g.Update(t, "position_extension", []byte(first)))

	second, err := e.Render(EntityExtension, NewEntityView(edge(t, demo(t), "Demo.PositionComponent")))
	require.NoError(t, err)
	g.Assert(t, "position_extension", []byte(second))
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := MustNewEngine().Render("nope.tmpl", nil)
	assert.Error(t, err)
}
