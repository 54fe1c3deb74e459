package extract

import "github.com/roach88/ecsgen/internal/ir"

// FinalizeComponent applies the rules that hold for every published
// component fact:
//   - a unique component has no index,
//   - an index on a component without fields is dropped,
//   - events are sorted and deduplicated.
func FinalizeComponent(f *ir.ComponentFact) {
	if f.Unique || len(f.Fields) == 0 {
		f.Index = ir.IndexSpec{Kind: ir.IndexNone}
	}
	f.Events = ir.NormalizeEvents(f.Events)
}
