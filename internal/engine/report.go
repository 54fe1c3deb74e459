package engine

import (
	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/dispatch"
	"github.com/roach88/ecsgen/internal/extract"
)

// PassReport summarizes one pass.
type PassReport struct {
	Seq   int64  `json:"seq"`
	Token string `json:"token"`

	// Extraction. Reused declarations hit the declaration-hash cache and
	// were not extracted; Unchanged ones were extracted into a value-equal
	// fact.
	Declarations  int                       `json:"declarations"`
	Reused        int                       `json:"reused"`
	Extracted     int                       `json:"extracted"`
	Added         int                       `json:"added"`
	Updated       int                       `json:"updated"`
	Unchanged     int                       `json:"unchanged"`
	Removed       int                       `json:"removed"`
	Malformed     int                       `json:"malformed"`
	Malformations []*extract.MalformedError `json:"-"`
	Facts         int                       `json:"facts"`

	Diagnostics []combine.Diagnostic `json:"diagnostics,omitempty"`

	// Derivation.
	Units        int                `json:"units"`
	Changed      int                `json:"changed"`
	RemovedUnits int                `json:"removed_units"`
	Rendered     int                `json:"rendered"`
	Hits         int                `json:"hits"`
	Failures     []dispatch.Failure `json:"failures,omitempty"`

	Dispatch *dispatch.Report `json:"-"`
}
