package extract

import (
	"context"

	"github.com/roach88/ecsgen/internal/ir"
)

type groupExtractor struct{}

func (groupExtractor) Category() ir.Category { return ir.CategoryGroup }

func (groupExtractor) Candidate(decl ir.Declaration) bool {
	return hasSimple(decl, AttrGroup)
}

func (x groupExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}
	if _, ok := find(bs, AttrGroup); !ok {
		return notApplicable()
	}

	f := &ir.GroupFact{Type: decl.Identity(cat.Suffix())}
	sets := []struct {
		kind AttrKind
		dst  *ir.IdentitySet
	}{
		{AttrAllOf, &f.AllOf},
		{AttrAnyOf, &f.AnyOf},
		{AttrNoneOf, &f.NoneOf},
	}

	seen := make(map[string]AttrKind)
	for _, s := range sets {
		var set ir.IdentitySetBuilder
		for _, b := range findAll(bs, s.kind) {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
			ids, err := b.typeList(decl, ir.CategoryComponent.Suffix())
			if err != nil {
				return malformed(cat, decl, "%v", err)
			}
			for _, id := range ids {
				if prev, ok := seen[id.FullName]; ok && prev != s.kind {
					return malformed(cat, decl, "component %s appears in both %s and %s", id.FullName, prev, s.kind)
				}
				seen[id.FullName] = s.kind
			}
			set.Add(ids...)
		}
		*s.dst = set.Build()
	}

	if f.Constraints() == 0 {
		return malformed(cat, decl, "group has no AllOf, AnyOf or NoneOf constraint")
	}
	return success(f)
}
