package engine

import (
	"errors"
	"fmt"
)

// EmitError reports a unit the sink could not publish or remove. Other
// units of the same pass are still published.
type EmitError struct {
	Identity string
	Op       string // "emit" or "remove"
	Err      error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}

// IsEmitError reports whether err wraps an EmitError.
func IsEmitError(err error) bool {
	var ee *EmitError
	return errors.As(err, &ee)
}
