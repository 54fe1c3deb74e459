package extract

import (
	"fmt"

	"github.com/roach88/ecsgen/internal/ir"
)

// Status is the outcome of one extraction.
type Status int

const (
	// NotApplicable: the declaration is not of this category, a simple-name
	// match turned out to be a different type, or extraction was cancelled
	// (Err carries the context error).
	NotApplicable Status = iota
	// Malformed: the declaration is of this category but unusable.
	Malformed
	Success
)

func (s Status) String() string {
	switch s {
	case Malformed:
		return "malformed"
	case Success:
		return "success"
	}
	return "not_applicable"
}

// Result is the explicit outcome of Extract. Fact is set only on Success.
type Result struct {
	Status   Status
	Category ir.Category
	Fact     ir.Fact
	Err      error
}

func success(f ir.Fact) Result {
	return Result{Status: Success, Category: f.Category(), Fact: f}
}

func notApplicable() Result {
	return Result{Status: NotApplicable}
}

func cancelled(err error) Result {
	return Result{Status: NotApplicable, Err: err}
}

func malformed(cat ir.Category, decl ir.Declaration, format string, args ...any) Result {
	return Result{
		Status:   Malformed,
		Category: cat,
		Err: &MalformedError{
			Declaration: decl.FullName(),
			File:        decl.File,
			Category:    cat,
			Message:     fmt.Sprintf(format, args...),
		},
	}
}

// MalformedError describes why a declaration could not become a fact.
type MalformedError struct {
	Declaration string
	File        string
	Category    ir.Category
	Message     string
}

func (e *MalformedError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: malformed %s %s: %s", e.File, e.Category, e.Declaration, e.Message)
	}
	return fmt.Sprintf("malformed %s %s: %s", e.Category, e.Declaration, e.Message)
}
