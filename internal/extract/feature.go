package extract

import (
	"context"

	"github.com/roach88/ecsgen/internal/ir"
)

type featureExtractor struct{}

func (featureExtractor) Category() ir.Category { return ir.CategoryFeature }

func (featureExtractor) Candidate(decl ir.Declaration) bool {
	return hasSimple(decl, AttrFeature)
}

// Resolve reads Feature(components: [...], systems: [...]) plus any
// Components/Systems list attributes. A feature bundling nothing is
// malformed.
func (x featureExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}
	marker, ok := find(bs, AttrFeature)
	if !ok {
		return notApplicable()
	}

	compSuffix := ir.CategoryComponent.Suffix()
	sysSuffix := ir.CategorySystem.Suffix()

	var comps, systems ir.IdentitySetBuilder
	ids, err := marker.namedTypes(decl, "components", compSuffix)
	if err != nil {
		return malformed(cat, decl, "%v", err)
	}
	comps.Add(ids...)
	if ids, err = marker.namedTypes(decl, "systems", sysSuffix); err != nil {
		return malformed(cat, decl, "%v", err)
	}
	systems.Add(ids...)

	for _, b := range bs {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		var dst *ir.IdentitySetBuilder
		var suffix string
		switch b.kind {
		case AttrComponents:
			dst, suffix = &comps, compSuffix
		case AttrSystems:
			dst, suffix = &systems, sysSuffix
		default:
			continue
		}
		ids, err := b.typeList(decl, suffix)
		if err != nil {
			return malformed(cat, decl, "%v", err)
		}
		dst.Add(ids...)
	}

	if comps.Len() == 0 && systems.Len() == 0 {
		return malformed(cat, decl, "feature bundles no components and no systems")
	}

	f := &ir.FeatureFact{
		Type:       decl.Identity(cat.Suffix()),
		Components: comps.Build(),
		Systems:    systems.Build(),
	}
	if f.ManualContexts, err = manualContexts(decl, bs); err != nil {
		return malformed(cat, decl, "%v", err)
	}
	return success(f)
}
