package extract

import (
	"context"
	"fmt"

	"github.com/roach88/ecsgen/internal/ir"
)

type systemExtractor struct{}

func (systemExtractor) Category() ir.Category { return ir.CategorySystem }

func (systemExtractor) Candidate(decl ir.Declaration) bool {
	return hasSimple(decl, AttrInitialize) ||
		hasSimple(decl, AttrExecute) ||
		hasSimple(decl, AttrReactive)
}

func (x systemExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}

	f := &ir.SystemFact{Type: decl.Identity(cat.Suffix())}
	phases := []struct {
		kind AttrKind
		dst  *ir.Phase
	}{
		{AttrInitialize, &f.Initialize},
		{AttrExecute, &f.Execute},
		{AttrReactive, &f.Reactive},
	}

	enabled := false
	for _, p := range phases {
		b, ok := find(bs, p.kind)
		if !ok {
			continue
		}
		phase, err := phaseOf(b)
		if err != nil {
			return malformed(cat, decl, "%v", err)
		}
		*p.dst = phase
		enabled = true
	}
	if !enabled {
		return notApplicable()
	}

	for _, b := range findAll(bs, AttrTrigger) {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		tr, err := triggerOf(decl, b)
		if err != nil {
			return malformed(cat, decl, "%v", err)
		}
		f.Triggers = append(f.Triggers, tr)
	}
	if f.Reactive.Enabled && len(f.Triggers) == 0 {
		return malformed(cat, decl, "reactive system declares no triggers")
	}

	var entityIs ir.IdentitySetBuilder
	for _, b := range findAll(bs, AttrEntityIs) {
		ids, err := b.typeList(decl, ir.CategoryComponent.Suffix())
		if err != nil {
			return malformed(cat, decl, "%v", err)
		}
		entityIs.Add(ids...)
	}
	f.EntityIs = entityIs.Build()

	var err error
	if f.ManualContexts, err = manualContexts(decl, bs); err != nil {
		return malformed(cat, decl, "%v", err)
	}
	return success(f)
}

// triggerOf reads Trigger(typeof(Component), kind). Any non-empty union of
// events is allowed.
func triggerOf(decl ir.Declaration, b binding) (ir.Trigger, error) {
	tr := ir.Trigger{Kind: ir.EventAdded}
	comp, ok, err := b.typeArg(decl, "typeof", 0, ir.CategoryComponent.Suffix())
	if err != nil {
		return tr, err
	}
	if !ok {
		return tr, fmt.Errorf("%s: component type is required", AttrTrigger)
	}
	tr.Component = comp
	if s, ok, err := b.enumArg("kind", 1); err != nil {
		return tr, err
	} else if ok {
		if tr.Kind, err = ir.ParseEventKind(s); err != nil {
			return tr, wrapArg(AttrTrigger, err)
		}
	}
	return tr, nil
}
