package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ecsgen/internal/ir"
)

// CompileFile compiles one CUE source file into declarations.
//
// A declaration file looks like:
//
//	namespace: "Game"
//	imports: ["Entitas.Generators.Attributes"]
//	declarations: PositionComponent: {
//		kind: "struct"
//		attributes: [{name: "Component"}, {name: "Context", args: [{type: "GameContext"}]}]
//		members: [{name: "x", type: "float"}, {name: "y", type: "float"}]
//	}
func CompileFile(ctx *cue.Context, path string, data []byte) ([]ir.Declaration, error) {
	v := ctx.CompileBytes(data, cue.Filename(path))
	return CompileDeclarations(v, path)
}

// CompileDeclarations reads the top-level "declarations" struct of a compiled
// CUE value. Declarations keep their source order.
func CompileDeclarations(v cue.Value, file string) ([]ir.Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	namespace, err := optionalString(v, "namespace")
	if err != nil {
		return nil, err
	}
	imports, err := optionalStrings(v, "imports")
	if err != nil {
		return nil, err
	}

	declsVal := v.LookupPath(cue.ParsePath("declarations"))
	if !declsVal.Exists() {
		return nil, nil // a file may carry only shared settings
	}

	iter, err := declsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []ir.Declaration
	for iter.Next() {
		decl, err := compileDeclaration(iter.Value(), iter.Label(), file, namespace, imports)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// compileDeclaration parses one declaration struct. Namespace and imports
// default to the file-level values; declaration imports are appended.
func compileDeclaration(v cue.Value, name, file, namespace string, imports []string) (ir.Declaration, error) {
	decl := ir.Declaration{
		File:      file,
		Namespace: namespace,
		Name:      name,
		Kind:      "class",
	}

	ns, err := optionalString(v, "namespace")
	if err != nil {
		return decl, err
	}
	if ns != "" {
		decl.Namespace = ns
	}

	kind, err := optionalString(v, "kind")
	if err != nil {
		return decl, err
	}
	if kind != "" {
		decl.Kind = kind
	}

	own, err := optionalStrings(v, "imports")
	if err != nil {
		return decl, err
	}
	decl.Imports = append(append([]string(nil), imports...), own...)

	decl.Attributes, err = parseAttributes(v)
	if err != nil {
		return decl, err
	}
	decl.Members, err = parseMembers(v)
	if err != nil {
		return decl, err
	}
	decl.Methods, err = parseMethods(v)
	if err != nil {
		return decl, err
	}
	return decl, nil
}

// parseAttributes extracts the ordered attribute list.
func parseAttributes(v cue.Value) ([]ir.Attribute, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}

	iter, err := attrsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []ir.Attribute
	for iter.Next() {
		av := iter.Value()
		name, err := requiredString(av, "name")
		if err != nil {
			return nil, err
		}
		typ, err := optionalString(av, "type")
		if err != nil {
			return nil, err
		}
		attr := ir.Attribute{Name: name, Type: typ}

		argsVal := av.LookupPath(cue.ParsePath("args"))
		if argsVal.Exists() {
			argIter, err := argsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for argIter.Next() {
				arg, err := parseArg(argIter.Value())
				if err != nil {
					return nil, err
				}
				attr.Args = append(attr.Args, arg)
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func parseArg(v cue.Value) (ir.AttrArg, error) {
	name, err := optionalString(v, "name")
	if err != nil {
		return ir.AttrArg{}, err
	}
	value, err := parseValue(v)
	if err != nil {
		return ir.AttrArg{}, err
	}
	return ir.AttrArg{Name: name, Value: value}, nil
}

// valueKeys are the mutually exclusive constant shapes of an argument.
var valueKeys = []string{"type", "types", "enum", "int", "bool", "string", "list"}

// parseValue reads exactly one typed constant from v.
func parseValue(v cue.Value) (ir.AttrValue, error) {
	var (
		found string
		out   ir.AttrValue
	)
	for _, key := range valueKeys {
		kv := v.LookupPath(cue.MakePath(cue.Str(key)))
		if !kv.Exists() {
			continue
		}
		if found != "" {
			return out, &CompileError{
				Field:   key,
				Message: fmt.Sprintf("argument sets both %q and %q", found, key),
				Pos:     kv.Pos(),
			}
		}
		found = key

		var err error
		switch key {
		case "type":
			var s string
			s, err = kv.String()
			out = ir.TypeValue(s)
		case "types":
			var names []string
			names, err = stringList(kv)
			items := make([]ir.AttrValue, len(names))
			for i, n := range names {
				items[i] = ir.TypeValue(n)
			}
			out = ir.ListValue(items...)
		case "enum":
			var s string
			s, err = kv.String()
			out = ir.EnumValue(s)
		case "int":
			var i int64
			i, err = kv.Int64()
			out = ir.IntValue(i)
		case "bool":
			var b bool
			b, err = kv.Bool()
			out = ir.BoolValue(b)
		case "string":
			var s string
			s, err = kv.String()
			out = ir.StringValue(s)
		case "list":
			out, err = parseList(kv)
		}
		if err != nil {
			return out, formatCUEError(err)
		}
	}
	if found == "" {
		return out, &CompileError{
			Field:   "args",
			Message: "argument needs one of: type, types, enum, int, bool, string, list",
			Pos:     v.Pos(),
		}
	}
	return out, nil
}

func parseList(v cue.Value) (ir.AttrValue, error) {
	iter, err := v.List()
	if err != nil {
		return ir.AttrValue{}, err
	}
	var items []ir.AttrValue
	for iter.Next() {
		item, err := parseValue(iter.Value())
		if err != nil {
			return ir.AttrValue{}, err
		}
		items = append(items, item)
	}
	return ir.ListValue(items...), nil
}

// parseMembers extracts members in declaration order. Members are public
// unless stated otherwise.
func parseMembers(v cue.Value) ([]ir.Member, error) {
	membersVal := v.LookupPath(cue.ParsePath("members"))
	if !membersVal.Exists() {
		return nil, nil
	}

	iter, err := membersVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var members []ir.Member
	for iter.Next() {
		mv := iter.Value()
		m := ir.Member{Public: true}
		if m.Name, err = requiredString(mv, "name"); err != nil {
			return nil, err
		}
		if m.Type, err = requiredString(mv, "type"); err != nil {
			return nil, err
		}
		flags := []struct {
			key string
			dst *bool
		}{
			{"public", &m.Public},
			{"static", &m.Static},
			{"abstract", &m.Abstract},
			{"synthesized", &m.Synthesized},
		}
		for _, f := range flags {
			fv := mv.LookupPath(cue.ParsePath(f.key))
			if !fv.Exists() {
				continue
			}
			b, err := fv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*f.dst = b
		}
		members = append(members, m)
	}
	return members, nil
}

func parseMethods(v cue.Value) ([]ir.Method, error) {
	methodsVal := v.LookupPath(cue.ParsePath("methods"))
	if !methodsVal.Exists() {
		return nil, nil
	}

	iter, err := methodsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var methods []ir.Method
	for iter.Next() {
		mv := iter.Value()
		name, err := requiredString(mv, "name")
		if err != nil {
			return nil, err
		}
		body, err := requiredString(mv, "body")
		if err != nil {
			return nil, err
		}
		methods = append(methods, ir.Method{Name: name, Body: body})
	}
	return methods, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	return stringList(fv)
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
