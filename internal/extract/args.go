package extract

import (
	"fmt"
	"strings"

	"github.com/roach88/ecsgen/internal/ir"
)

// qualify turns a type reference into an identity. References without a
// namespace are taken to live in the declaring type's namespace.
func qualify(decl ir.Declaration, name string, suffix string) ir.TypeIdentity {
	name = strings.TrimPrefix(name, "global::")
	if !strings.Contains(name, ".") && decl.Namespace != "" {
		return ir.NewTypeIdentity(decl.Namespace, name, suffix)
	}
	return ir.ParseTypeIdentity(name, suffix)
}

// typeList collects every type reference among the attribute's arguments.
func (b binding) typeList(decl ir.Declaration, suffix string) ([]ir.TypeIdentity, error) {
	var out []ir.TypeIdentity
	for i, arg := range b.attr.Args {
		names, err := arg.Value.TypeNames()
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", b.kind, i, err)
		}
		for _, n := range names {
			out = append(out, qualify(decl, n, suffix))
		}
	}
	return out, nil
}

// namedTypes reads the type list passed as the named argument name.
func (b binding) namedTypes(decl ir.Declaration, name, suffix string) ([]ir.TypeIdentity, error) {
	v, ok := b.attr.Arg(name, -1)
	if !ok {
		return nil, nil
	}
	names, err := v.TypeNames()
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", b.kind, name, err)
	}
	out := make([]ir.TypeIdentity, len(names))
	for i, n := range names {
		out[i] = qualify(decl, n, suffix)
	}
	return out, nil
}

func (b binding) typeArg(decl ir.Declaration, name string, pos int, suffix string) (ir.TypeIdentity, bool, error) {
	v, ok := b.attr.Arg(name, pos)
	if !ok {
		return ir.TypeIdentity{}, false, nil
	}
	if v.Kind != ir.ValueType {
		return ir.TypeIdentity{}, false, fmt.Errorf("%s.%s: expected type reference, got %s", b.kind, name, v.Kind)
	}
	return qualify(decl, v.Str, suffix), true, nil
}

// enumArg accepts an enum member or a plain string naming one.
func (b binding) enumArg(name string, pos int) (string, bool, error) {
	v, ok := b.attr.Arg(name, pos)
	if !ok {
		return "", false, nil
	}
	if v.Kind != ir.ValueEnum && v.Kind != ir.ValueString {
		return "", false, fmt.Errorf("%s.%s: expected enum, got %s", b.kind, name, v.Kind)
	}
	return v.Str, true, nil
}

func (b binding) intArg(name string, pos int) (int64, bool, error) {
	v, ok := b.attr.Arg(name, pos)
	if !ok {
		return 0, false, nil
	}
	if v.Kind != ir.ValueInt {
		return 0, false, fmt.Errorf("%s.%s: expected int, got %s", b.kind, name, v.Kind)
	}
	return v.Int, true, nil
}

// manualContexts collects AddToContext targets and Context attributes that
// name a context type.
func manualContexts(decl ir.Declaration, bs []binding) (ir.IdentitySet, error) {
	var set ir.IdentitySetBuilder
	for _, b := range bs {
		if b.kind != AttrAddToContext && !(b.kind == AttrContext && len(b.attr.Args) > 0) {
			continue
		}
		ids, err := b.typeList(decl, ir.CategoryContext.Suffix())
		if err != nil {
			return ir.IdentitySet{}, err
		}
		set.Add(ids...)
	}
	return set.Build(), nil
}

// phaseOf reads Initialize/Execute/Reactive(phase, order).
func phaseOf(b binding) (ir.Phase, error) {
	p := ir.Phase{Enabled: true}
	if s, ok, err := b.enumArg("phase", 0); err != nil {
		return p, err
	} else if ok {
		if p.Stage, err = ir.ParseExecutionPhase(s); err != nil {
			return p, fmt.Errorf("%s.phase: %w", b.kind, err)
		}
	}
	order, _, err := b.intArg("order", 1)
	if err != nil {
		return p, err
	}
	p.Order = order
	return p, nil
}
