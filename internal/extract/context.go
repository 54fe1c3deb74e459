package extract

import (
	"context"

	"github.com/roach88/ecsgen/internal/ir"
)

type contextExtractor struct{}

func (contextExtractor) Category() ir.Category { return ir.CategoryContext }

// Candidate matches a Context attribute without arguments. Context(typeof(X))
// on other declarations attaches them to X instead.
func (contextExtractor) Candidate(decl ir.Declaration) bool {
	for _, a := range decl.Attributes {
		if Classify(a.Name) == AttrContext && len(a.Args) == 0 {
			return true
		}
	}
	return false
}

func (x contextExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}

	marked := false
	for _, b := range findAll(bs, AttrContext) {
		if len(b.attr.Args) == 0 {
			marked = true
		}
	}
	if !marked {
		return notApplicable()
	}

	f := &ir.ContextFact{Type: decl.Identity(cat.Suffix())}
	lists := []struct {
		kind   AttrKind
		suffix string
		dst    *ir.IdentitySet
	}{
		{AttrComponents, ir.CategoryComponent.Suffix(), &f.Components},
		{AttrSystems, ir.CategorySystem.Suffix(), &f.Systems},
		{AttrFeatures, ir.CategoryFeature.Suffix(), &f.Features},
	}

	for _, l := range lists {
		var set ir.IdentitySetBuilder
		for _, b := range findAll(bs, l.kind) {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
			ids, err := b.typeList(decl, l.suffix)
			if err != nil {
				return malformed(cat, decl, "%v", err)
			}
			set.Add(ids...)
		}
		*l.dst = set.Build()
	}
	return success(f)
}
