package extract

import (
	"context"
	"fmt"

	"github.com/roach88/ecsgen/internal/ir"
)

// CustomIndexMethod is the component method captured verbatim as the
// custom index lookup.
const CustomIndexMethod = "GetIndex"

type componentExtractor struct{}

func (componentExtractor) Category() ir.Category { return ir.CategoryComponent }

func (componentExtractor) Candidate(decl ir.Declaration) bool {
	return hasSimple(decl, AttrComponent)
}

func (x componentExtractor) Resolve(ctx context.Context, decl ir.Declaration) Result {
	cat := x.Category()
	bs, res, ok := bindOrFail(ctx, cat, decl)
	if !ok {
		return res
	}
	if _, ok := find(bs, AttrComponent); !ok {
		return notApplicable()
	}

	f := &ir.ComponentFact{
		Type:  decl.Identity(cat.Suffix()),
		Index: ir.IndexSpec{Kind: ir.IndexNone},
	}

	var err error
	if f.ManualContexts, err = manualContexts(decl, bs); err != nil {
		return malformed(cat, decl, "%v", err)
	}

	_, f.Unique = find(bs, AttrUnique)

	for _, b := range findAll(bs, AttrEvent) {
		ev, err := eventOf(b)
		if err != nil {
			return malformed(cat, decl, "%v", err)
		}
		f.Events = append(f.Events, ev)
	}

	if b, ok := find(bs, AttrIndex); ok {
		if f.Index, err = indexOf(b); err != nil {
			return malformed(cat, decl, "%v", err)
		}
	}

	if b, ok := find(bs, AttrCleanup); ok {
		f.Cleanup = ir.CleanupRemoveComponent
		if s, ok, err := b.enumArg("mode", 0); err != nil {
			return malformed(cat, decl, "%v", err)
		} else if ok {
			if f.Cleanup, err = ir.ParseCleanupMode(s); err != nil {
				return malformed(cat, decl, "%v", wrapArg(AttrCleanup, err))
			}
		}
	}

	for _, m := range decl.Members {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		if m.IsField() {
			f.Fields = append(f.Fields, ir.FieldFact{Type: m.Type, Name: m.Name})
		}
	}

	if body, ok := decl.Method(CustomIndexMethod); ok {
		f.CustomIndex = body
	}

	FinalizeComponent(f)
	return success(f)
}

// eventOf reads Event(target, kind, order). Components only raise Added,
// Removed or both.
func eventOf(b binding) (ir.EventFact, error) {
	ev := ir.EventFact{Target: ir.TargetAny, Kind: ir.EventAdded}
	if s, ok, err := b.enumArg("target", 0); err != nil {
		return ev, err
	} else if ok {
		if ev.Target, err = ir.ParseEventTarget(s); err != nil {
			return ev, wrapArg(AttrEvent, err)
		}
	}
	if s, ok, err := b.enumArg("kind", 1); err != nil {
		return ev, err
	} else if ok {
		if ev.Kind, err = ir.ParseEventKind(s); err != nil {
			return ev, wrapArg(AttrEvent, err)
		}
	}
	if ev.Kind&^ir.EventAddedOrRemoved != 0 {
		return ev, fmt.Errorf("%s: component events must be Added, Removed or AddedOrRemoved, got %s", AttrEvent, ev.Kind)
	}
	order, _, err := b.intArg("order", 2)
	if err != nil {
		return ev, err
	}
	ev.Order = order
	return ev, nil
}

// indexOf reads Index(kind, maxSize). The kind defaults to Dictionary.
func indexOf(b binding) (ir.IndexSpec, error) {
	spec := ir.IndexSpec{Kind: ir.IndexDictionary}
	if s, ok, err := b.enumArg("kind", 0); err != nil {
		return spec, err
	} else if ok {
		if spec.Kind, err = ir.ParseIndexKind(s); err != nil {
			return spec, wrapArg(AttrIndex, err)
		}
	}
	size, _, err := b.intArg("maxSize", 1)
	if err != nil {
		return spec, err
	}
	if size < 0 {
		return spec, fmt.Errorf("%s: maxSize must not be negative, got %d", AttrIndex, size)
	}
	spec.MaxSize = size
	return spec, nil
}
