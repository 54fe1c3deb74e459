package extract

import (
	"context"
	"fmt"

	"github.com/roach88/ecsgen/internal/ir"
)

// Extractor recognises one category of declaration.
type Extractor interface {
	Category() ir.Category
	// Candidate is a cheap syntactic filter. It may accept declarations
	// that Resolve later rejects as NotApplicable.
	Candidate(decl ir.Declaration) bool
	Resolve(ctx context.Context, decl ir.Declaration) Result
}

// extractors in category precedence order.
var extractors = []Extractor{
	componentExtractor{},
	contextExtractor{},
	systemExtractor{},
	featureExtractor{},
	groupExtractor{},
	listenerExtractor{},
}

// Extractors returns the registered extractors in precedence order.
func Extractors() []Extractor {
	return append([]Extractor(nil), extractors...)
}

// Extract runs the extractors in precedence order and returns the first
// applicable result. A declaration yields at most one fact.
func Extract(ctx context.Context, decl ir.Declaration) Result {
	for _, x := range extractors {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		if !x.Candidate(decl) {
			continue
		}
		res := resolveGuarded(ctx, x, decl)
		if res.Status == NotApplicable && res.Err == nil {
			continue
		}
		return res
	}
	return notApplicable()
}

// resolveGuarded converts a panic inside Resolve into a Malformed result.
func resolveGuarded(ctx context.Context, x Extractor, decl ir.Declaration) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = malformed(x.Category(), decl, "panic during resolution: %v", r)
		}
	}()
	return x.Resolve(ctx, decl)
}

// bindOrFail binds attributes and maps errors onto results. ok is false when
// res should be returned as is.
func bindOrFail(ctx context.Context, cat ir.Category, decl ir.Declaration) (bs []binding, res Result, ok bool) {
	bs, err := bindAttributes(ctx, decl)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr), false
		}
		return nil, malformed(cat, decl, "%v", err), false
	}
	return bs, Result{}, true
}

func wrapArg(kind AttrKind, err error) error {
	return fmt.Errorf("%s: %w", kind, err)
}
