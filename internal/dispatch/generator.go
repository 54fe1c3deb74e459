package dispatch

import (
	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/ir"
)

// UnitSpec names one output unit and how to render it. View is called
// lazily, only when the unit must be rendered.
type UnitSpec struct {
	Identity string
	Template string
	View     func() any
}

// Generator produces units for one kind of extended fact.
type Generator interface {
	Name() string
	items(r *combine.Result) []item
}

// item is one generator input: a stable key, its projection, and the units
// derived from it.
type item struct {
	key        string
	projection func() ir.IRObject
	units      func() []UnitSpec
}

type generator[T any] struct {
	name    string
	list    func(*combine.Result) []T
	key     func(T) string
	project func(T) ir.IRObject
	specs   func(T) []UnitSpec
}

func newGenerator[T any](
	name string,
	list func(*combine.Result) []T,
	key func(T) string,
	project func(T) ir.IRObject,
	specs func(T) []UnitSpec,
) Generator {
	return &generator[T]{name: name, list: list, key: key, project: project, specs: specs}
}

func (g *generator[T]) Name() string { return g.name }

func (g *generator[T]) items(r *combine.Result) []item {
	in := g.list(r)
	out := make([]item, 0, len(in))
	for _, v := range in {
		out = append(out, item{
			key:        g.key(v),
			projection: func() ir.IRObject { return g.project(v) },
			units:      func() []UnitSpec { return g.specs(v) },
		})
	}
	return out
}

// UnitIdentity is "{namespace}.{logical}.g.cs", with the namespace omitted
// when empty.
func UnitIdentity(namespace, logical string) string {
	if namespace == "" {
		return logical + ".g.cs"
	}
	return namespace + "." + logical + ".g.cs"
}
