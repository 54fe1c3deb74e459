package harness

import "github.com/roach88/ecsgen/internal/engine"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion of every pass held.
	Pass bool `json:"pass"`

	// Errors lists failed assertions, prefixed with the pass they belong to.
	Errors []string `json:"errors,omitempty"`

	// Units is the emitted text per unit identity after the last pass.
	Units map[string]string `json:"-"`

	// Failed lists unit identities emitted as failure comments after the
	// last pass.
	Failed []string `json:"failed,omitempty"`

	// Reports holds one report per pass, the initial pass first.
	Reports []*engine.PassReport `json:"reports"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Units:  make(map[string]string),
	}
}

// fail records a failed assertion.
func (r *Result) fail(label string, err error) {
	r.Pass = false
	r.Errors = append(r.Errors, label+": "+err.Error())
}
