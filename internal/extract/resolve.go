package extract

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ecsgen/internal/ir"
)

// ResolveAttributes binds attribute names to full type names the way a
// compiler's semantic model would, and returns a copy of decl with
// Attribute.Type filled in where exactly one binding exists. Attributes that
// already carry a type are left alone.
//
// Lookup walks scopes outward: an explicit qualifier alone, otherwise the
// declaration's namespace, each enclosing namespace, then the imports
// together. The first scope with a match wins; two different matches in one
// scope are ambiguous and stay unresolved. The attribute catalog always
// resolves; other types resolve when known reports them.
func ResolveAttributes(decl ir.Declaration, known func(fullName string) bool) ir.Declaration {
	out := decl
	out.Attributes = slices.Clone(decl.Attributes)
	for i, a := range out.Attributes {
		if a.Type != "" {
			continue
		}
		if t, ok := resolveAttributeType(decl, a.Name, known); ok {
			out.Attributes[i].Type = t
		}
	}
	return out
}

func resolveAttributeType(decl ir.Declaration, name string, known func(string) bool) (string, bool) {
	qualifier, simple := splitQualified(name)
	names := []string{simple}
	if !strings.HasSuffix(simple, "Attribute") {
		names = append(names, simple+"Attribute")
	}

	for _, scope := range lookupScopes(decl, qualifier) {
		var match string
		for _, ns := range scope {
			for _, n := range names {
				full, ok := bindName(ns, n, known)
				if !ok {
					continue
				}
				if match != "" && match != full {
					return "", false
				}
				match = full
			}
		}
		if match != "" {
			return match, true
		}
	}
	return "", false
}

// lookupScopes lists the namespaces searched for an attribute name, grouped
// by precedence.
func lookupScopes(decl ir.Declaration, qualifier string) [][]string {
	if qualifier != "" {
		return [][]string{{qualifier}}
	}
	var scopes [][]string
	for ns := decl.Namespace; ns != ""; {
		scopes = append(scopes, []string{ns})
		i := strings.LastIndexByte(ns, '.')
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	if len(decl.Imports) > 0 {
		scopes = append(scopes, decl.Imports)
	}
	return scopes
}

func bindName(ns, name string, known func(string) bool) (string, bool) {
	switch {
	case ns == AttributeNamespace && Classify(name) != AttrIgnored:
		return Classify(name).TypeName(), true
	case known != nil && known(ns+"."+name):
		return ns + "." + name, true
	}
	return "", false
}

// binding is an attribute confirmed to be a catalog attribute.
type binding struct {
	kind AttrKind
	attr ir.Attribute
}

// bindAttributes resolves every recognised attribute of decl. Simple-name
// matches that resolve to a different type are dropped. A recognised name
// that cannot be resolved at all is an error.
func bindAttributes(ctx context.Context, decl ir.Declaration) ([]binding, error) {
	var out []binding
	for _, a := range decl.Attributes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind := Classify(a.Name)
		if kind == AttrIgnored {
			continue
		}
		ok, err := resolves(decl, kind, a)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, binding{kind: kind, attr: a})
		}
	}
	return out, nil
}

func resolves(decl ir.Declaration, kind AttrKind, a ir.Attribute) (bool, error) {
	if a.Type != "" {
		return kind.matchesType(a.Type), nil
	}
	if qualifier, _ := splitQualified(a.Name); qualifier != "" {
		return qualifier == AttributeNamespace, nil
	}
	if decl.Namespace == AttributeNamespace || slices.Contains(decl.Imports, AttributeNamespace) {
		return true, nil
	}
	return false, fmt.Errorf("attribute %q cannot be resolved: %s is not imported", a.Name, AttributeNamespace)
}

// hasSimple reports whether any attribute's simple name classifies as kind.
func hasSimple(decl ir.Declaration, kind AttrKind) bool {
	for _, a := range decl.Attributes {
		if Classify(a.Name) == kind {
			return true
		}
	}
	return false
}

func find(bs []binding, kind AttrKind) (binding, bool) {
	for _, b := range bs {
		if b.kind == kind {
			return b, true
		}
	}
	return binding{}, false
}

func findAll(bs []binding, kind AttrKind) []binding {
	var out []binding
	for _, b := range bs {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}
