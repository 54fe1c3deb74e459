package testutil

import (
	"github.com/roach88/ecsgen/internal/extract"
	"github.com/roach88/ecsgen/internal/ir"
)

// Decl builds a class declaration that imports the attribute catalog.
func Decl(namespace, name string, attrs ...ir.Attribute) ir.Declaration {
	return ir.Declaration{
		Namespace:  namespace,
		Name:       name,
		Kind:       "class",
		Imports:    []string{extract.AttributeNamespace},
		Attributes: attrs,
	}
}

// Attr builds an attribute.
func Attr(name string, args ...ir.AttrArg) ir.Attribute {
	return ir.Attribute{Name: name, Args: args}
}

// Pos builds a positional argument.
func Pos(v ir.AttrValue) ir.AttrArg { return ir.AttrArg{Value: v} }

// Types builds a list of type references.
func Types(names ...string) ir.AttrValue {
	vs := make([]ir.AttrValue, len(names))
	for i, n := range names {
		vs[i] = ir.TypeValue(n)
	}
	return ir.ListValue(vs...)
}

// Fields builds public instance fields from "type name" pairs.
func Fields(pairs ...[2]string) []ir.Member {
	out := make([]ir.Member, len(pairs))
	for i, p := range pairs {
		out[i] = ir.Member{Type: p[0], Name: p[1], Public: true}
	}
	return out
}

// PositionComponent is Demo.PositionComponent with float fields x and y,
// plus any extra fields given.
func PositionComponent(extra ...[2]string) ir.Declaration {
	d := Decl("Demo", "PositionComponent", Attr("Component"))
	d.Members = Fields(append([][2]string{{"float", "x"}, {"float", "y"}}, extra...)...)
	return d
}

// GameContext is the Demo.Game context listing components.
func GameContext(components ...string) ir.Declaration {
	return Decl("Demo", "Game", Attr("Context"), Attr("Components", Pos(Types(components...))))
}
