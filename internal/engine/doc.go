// Package engine runs ecsgen generation passes.
//
// A pass takes the source files that changed and the ones that were
// removed, and moves every stage forward once:
//
//  1. Declarations of all loaded files get their attribute types resolved
//     and are content-hashed. Only declarations whose hash changed are
//     extracted again; extraction fans out over a bounded worker pool with
//     one goroutine per declaration key.
//  2. The fact store publishes a sorted snapshot, which the combination
//     engine joins into extended facts.
//  3. The dispatcher derives output units, re-rendering only projections
//     that changed, and the sink receives the changed and removed units.
//
// Passes are stamped with a logical sequence and a token from a
// TokenGenerator. With a manifest the sequence continues after the last
// recorded pass. Wall-clock time never orders anything.
//
// Passes are serialized. Cancelling a pass returns the context error;
// facts stored before the cancellation persist into the next pass.
package engine
