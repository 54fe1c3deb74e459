package extract

import (
	"context"
	"fmt"

	"github.com/roach88/ecsgen/internal/ir"
)

type listenerExtractor struct{}

func (listenerExtractor) Category() ir.Category { return ir.CategoryListener }

func (listenerExtractor) Candidate(decl ir.Declaration) bool {
	return hasSimple(decl, AttrListener)
}

// Resolve reads Listener(typeof(Component), target, kind).
func (x listenerExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}
	b, ok := find(bs, AttrListener)
	if !ok {
		return notApplicable()
	}

	f := &ir.ListenerFact{
		Type:   decl.Identity(cat.Suffix()),
		Target: ir.TargetAny,
		Kind:   ir.EventAdded,
	}

	comp, ok, err := b.typeArg(decl, "typeof", 0, ir.CategoryComponent.Suffix())
	if err != nil {
		return malformed(cat, decl, "%v", err)
	}
	if !ok {
		return malformed(cat, decl, "%s: component type is required", AttrListener)
	}
	f.Component = comp

	if s, ok, err := b.enumArg("target", 1); err != nil {
		return malformed(cat, decl, "%v", err)
	} else if ok {
		if f.Target, err = ir.ParseEventTarget(s); err != nil {
			return malformed(cat, decl, "%v", wrapArg(AttrListener, err))
		}
	}
	if s, ok, err := b.enumArg("kind", 2); err != nil {
		return malformed(cat, decl, "%v", err)
	} else if ok {
		if f.Kind, err = ir.ParseEventKind(s); err != nil {
			return malformed(cat, decl, "%v", wrapArg(AttrListener, err))
		}
	}
	if f.Kind&^ir.EventAddedOrRemoved != 0 {
		return malformed(cat, decl, "%v", fmt.Errorf("%s: listeners observe Added or Removed events, got %s", AttrListener, f.Kind))
	}
	return success(f)
}
