package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/factstore"
	"github.com/roach88/ecsgen/internal/ir"
	"github.com/roach88/ecsgen/internal/templates"
	"github.com/roach88/ecsgen/internal/testutil"
)

const (
	declUnit     = "Demo.PositionComponent.g.cs"
	contextsUnit = "Demo.PositionComponent.Contexts.g.cs"
	entityUnit   = "Demo.Game.Demo.PositionComponent.Entity.g.cs"
	gameUnit     = "Demo.Game.g.cs"
	systemsUnit  = "Demo.Game.Systems.g.cs"
)

func positionGame(fields ...string) factstore.Snapshot {
	if len(fields) == 0 {
		fields = []string{"float x", "float y"}
	}
	return factstore.Snapshot{
		Components: []*ir.ComponentFact{testutil.Component("Demo.PositionComponent", fields...)},
		Contexts:   []*ir.ContextFact{testutil.Context("Demo.Game", "Demo.PositionComponent")},
	}
}

func combined(t *testing.T, snap factstore.Snapshot) *combine.Result {
	t.Helper()
	r, err := combine.Combine(context.Background(), snap)
	require.NoError(t, err)
	return r
}

func dispatch(t *testing.T, d *Dispatcher, snap factstore.Snapshot) *Report {
	t.Helper()
	rep, err := d.Dispatch(context.Background(), combined(t, snap))
	require.NoError(t, err)
	return rep
}

func identities(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Identity
	}
	return out
}

func unit(t *testing.T, rep *Report, identity string) Unit {
	t.Helper()
	for _, u := range rep.Units {
		if u.Identity == identity {
			return u
		}
	}
	t.Fatalf("unit %s not produced; have %v", identity, identities(rep.Units))
	return Unit{}
}

func TestPositionGameEndToEnd(t *testing.T) {
	d := New(templates.MustNewEngine())
	rep := dispatch(t, d, positionGame())

	assert.Equal(t, []string{entityUnit, systemsUnit, gameUnit, contextsUnit, declUnit}, identities(rep.Units))
	assert.Empty(t, rep.Failures)

	entity := unit(t, rep, entityUnit)
	assert.Equal(t, GenEntityExtension, entity.Generator)
	for _, want := range []string{
		"public static bool HasPosition(this GameEntity entity)",
		"public static Demo.PositionComponent GetPosition(this GameEntity entity)",
		"public static GameEntity SetPosition(this GameEntity entity, float x, float y)",
		"public static GameEntity RemovePosition(this GameEntity entity)",
	} {
		assert.Contains(t, entity.Text, want)
	}

	ctxs := unit(t, rep, contextsUnit)
	assert.Contains(t, ctxs.Text, "partial class Game : Demo.IPositionContext")
}

func TestFeatureSystemAndListenerUnits(t *testing.T) {
	game := testutil.Context("Demo.Game", "Demo.PositionComponent")
	game.Features = ir.NewIdentitySet(testutil.ID("Demo.PhysicsFeature", ir.CategoryFeature))
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			testutil.Component("Demo.PositionComponent", "float x"),
			testutil.Component("Demo.VelocityComponent", "float dx"),
		},
		Contexts: []*ir.ContextFact{game},
		Systems:  []*ir.SystemFact{testutil.ExecuteSystem("Demo.TickSystem", 1)},
		Features: []*ir.FeatureFact{
			testutil.Feature("Demo.PhysicsFeature", []string{"Demo.VelocityComponent"}, []string{"Demo.TickSystem"}),
		},
		Listeners: []*ir.ListenerFact{
			testutil.Listener("Demo.PositionLabel", "Demo.PositionComponent", ir.TargetAny, ir.EventAdded),
		},
	}

	rep := dispatch(t, New(templates.MustNewEngine()), snap)
	assert.Empty(t, rep.Failures)
	ids := identities(rep.Units)
	for _, want := range []string{
		"Demo.PhysicsFeature.g.cs",
		"Demo.TickSystem.g.cs",
		"Demo.PositionLabel.g.cs",
		"Demo.Game.Demo.VelocityComponent.Entity.g.cs",
	} {
		assert.Contains(t, ids, want)
	}
	assert.Equal(t, GenFeatureDeclaration, unit(t, rep, "Demo.PhysicsFeature.g.cs").Generator)
	assert.Equal(t, GenListenerDeclaration, unit(t, rep, "Demo.PositionLabel.g.cs").Generator)
}

func TestDispatchIsIdempotent(t *testing.T) {
	d := New(templates.MustNewEngine())
	first := dispatch(t, d, positionGame())
	assert.Equal(t, 5, first.Rendered)
	assert.Equal(t, 0, first.Hits)
	assert.Len(t, first.Changed, 5, "everything is new")

	second := dispatch(t, d, positionGame())
	assert.Equal(t, 0, second.Rendered, "unchanged facts re-render nothing")
	assert.Equal(t, 5, second.Hits)
	assert.Empty(t, second.Changed)
	assert.Empty(t, second.Removed)
	require.Len(t, second.Units, len(first.Units))
	for i := range first.Units {
		assert.Equal(t, first.Units[i].Text, second.Units[i].Text)
	}
}

func TestAddingFieldReRendersOnlyMemberUnits(t *testing.T) {
	d := New(templates.MustNewEngine())
	dispatch(t, d, positionGame())

	rep := dispatch(t, d, positionGame("float x", "float y", "float z"))
	assert.Equal(t, 2, rep.Rendered)
	assert.Equal(t, 3, rep.Hits)
	assert.ElementsMatch(t, []string{entityUnit, declUnit}, identities(rep.Changed))
	assert.Contains(t, unit(t, rep, entityUnit).Text, "float x, float y, float z")
}

func TestVanishedItemsAreRemoved(t *testing.T) {
	d := New(templates.MustNewEngine())
	dispatch(t, d, positionGame())

	snap := positionGame()
	snap.Contexts = nil
	rep := dispatch(t, d, snap)

	assert.Equal(t, []string{declUnit}, identities(rep.Units))
	assert.Equal(t, []string{entityUnit, systemsUnit, gameUnit, contextsUnit}, rep.Removed)
	assert.Equal(t, []string{declUnit}, identities(rep.Changed), "declaration lists no contexts now")
}

func TestDiscoveryOrderDoesNotMatter(t *testing.T) {
	snap := factstore.Snapshot{
		Components: []*ir.ComponentFact{
			testutil.Component("Demo.PositionComponent", "float x"),
			testutil.Component("Demo.VelocityComponent", "float dx"),
		},
		Contexts: []*ir.ContextFact{
			testutil.Context("Demo.Game", "Demo.PositionComponent", "Demo.VelocityComponent"),
			testutil.Context("Demo.Ui", "Demo.PositionComponent"),
		},
		Systems: []*ir.SystemFact{
			testutil.ReactiveSystem("Demo.BSystem", 1, "Demo.PositionComponent", ir.EventAdded),
			testutil.ReactiveSystem("Demo.ASystem", 1, "Demo.PositionComponent", ir.EventAdded),
		},
		Groups: []*ir.GroupFact{testutil.Group("Demo.MovingGroup", "Demo.PositionComponent", "Demo.VelocityComponent")},
	}
	snap.Contexts[0].Systems = ir.NewIdentitySet(snap.Systems[0].Type, snap.Systems[1].Type)

	permuted := factstore.Snapshot{
		Components: []*ir.ComponentFact{snap.Components[1], snap.Components[0]},
		Contexts:   []*ir.ContextFact{snap.Contexts[1], snap.Contexts[0]},
		Systems:    []*ir.SystemFact{snap.Systems[1], snap.Systems[0]},
		Groups:     snap.Groups,
	}

	a := dispatch(t, New(templates.MustNewEngine()), snap)
	b := dispatch(t, New(templates.MustNewEngine()), permuted)
	require.Equal(t, identities(a.Units), identities(b.Units))
	for i := range a.Units {
		assert.Equal(t, a.Units[i].Text, b.Units[i].Text, a.Units[i].Identity)
	}

	entity := unit(t, a, "Demo.Game.Demo.PositionComponent.Entity.g.cs").Text
	assert.Less(t, strings.Index(entity, "Collect<Demo.ASystem>"), strings.Index(entity, "Collect<Demo.BSystem>"),
		"equal reactive order falls back to full name")
}

func failingGenerators() []Generator {
	list := func(r *combine.Result) []*combine.ExtendedComponent { return r.Components }
	key := func(c *combine.ExtendedComponent) string { return c.Fact.Type.FullName }
	project := func(c *combine.ExtendedComponent) ir.IRObject { return c.Fact.Canonical() }
	return []Generator{
		newGenerator("panics", list, key, project, func(c *combine.ExtendedComponent) []UnitSpec {
			return []UnitSpec{{
				Identity: UnitIdentity(c.Fact.Type.Namespace, c.Fact.Type.Name+".Panics"),
				Template: templates.ComponentDeclaration,
				View:     func() any { panic("view exploded") },
			}}
		}),
		newGenerator("errors", list, key, project, func(c *combine.ExtendedComponent) []UnitSpec {
			return []UnitSpec{{
				Identity: UnitIdentity(c.Fact.Type.Namespace, c.Fact.Type.Name+".Errors"),
				Template: "missing.tmpl",
				View:     func() any { return nil },
			}}
		}),
		newGenerator("ok", list, key, project, func(c *combine.ExtendedComponent) []UnitSpec {
			return []UnitSpec{{
				Identity: UnitIdentity(c.Fact.Type.Namespace, c.Fact.Type.Name),
				Template: templates.ComponentDeclaration,
				View:     func() any { return templates.NewComponentView(c) },
			}}
		}),
	}
}

func TestRenderFailuresAreCapturedPerUnit(t *testing.T) {
	d := New(templates.MustNewEngine(), WithGenerators(failingGenerators()...))
	rep := dispatch(t, d, positionGame())

	require.Len(t, rep.Units, 3, "failed units are still emitted")
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, "Demo.PositionComponent.Errors.g.cs", rep.Failures[0].Identity)
	assert.Equal(t, "Demo.PositionComponent.Panics.g.cs", rep.Failures[1].Identity)
	assert.Contains(t, rep.Failures[1].Message, "view exploded")

	panicked := unit(t, rep, "Demo.PositionComponent.Panics.g.cs")
	assert.True(t, panicked.Failed)
	assert.True(t, strings.HasPrefix(panicked.Text, templates.Header()))
	assert.Contains(t, panicked.Text, "view exploded")

	ok := unit(t, rep, "Demo.PositionComponent.g.cs")
	assert.False(t, ok.Failed)
	assert.Contains(t, ok.Text, "IPositionContext")

	again := dispatch(t, d, positionGame())
	assert.Equal(t, 0, again.Rendered)
	assert.Len(t, again.Failures, 2, "cached failures are still reported")
}

func TestDuplicateIdentityIsReported(t *testing.T) {
	gens := failingGenerators()
	d := New(templates.MustNewEngine(), WithGenerators(gens[2], gens[2]))
	rep := dispatch(t, d, positionGame())
	assert.Len(t, rep.Units, 1)
	require.Len(t, rep.Failures, 1)
	assert.Contains(t, rep.Failures[0].Message, "already produced")
}

func TestCancelledDispatchKeepsCache(t *testing.T) {
	d := New(templates.MustNewEngine())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, combined(t, positionGame()))
	assert.True(t, errors.Is(err, context.Canceled))

	rep := dispatch(t, d, positionGame())
	assert.Equal(t, 5, rep.Rendered)
	assert.Len(t, rep.Changed, 5)
}

func TestReset(t *testing.T) {
	d := New(templates.MustNewEngine())
	dispatch(t, d, positionGame())
	d.Reset()
	rep := dispatch(t, d, positionGame())
	assert.Equal(t, 5, rep.Rendered)
}

func TestUnitIdentity(t *testing.T) {
	assert.Equal(t, "Demo.Position.g.cs", UnitIdentity("Demo", "Position"))
	assert.Equal(t, "Position.g.cs", UnitIdentity("", "Position"))
}

func TestForgottenUnitIsChangedAgain(t *testing.T) {
	d := New(templates.MustNewEngine())
	dispatch(t, d, positionGame())
	d.Forget("Demo.Game.g.cs")

	rep := dispatch(t, d, positionGame())
	assert.Equal(t, 0, rep.Rendered)
	require.Len(t, rep.Changed, 1)
	assert.Equal(t, "Demo.Game.g.cs", rep.Changed[0].Identity)
	assert.Empty(t, rep.Removed)

	d.Forget("Demo.Game.g.cs")
	d.Forget("Demo.Nowhere.g.cs")
	withoutGame := positionGame()
	withoutGame.Contexts = nil
	rep = dispatch(t, d, withoutGame)
	assert.Contains(t, rep.Removed, "Demo.Game.g.cs", "a forgotten unit that vanished is still removed")
	assert.NotContains(t, rep.Removed, "Demo.Nowhere.g.cs")
}
