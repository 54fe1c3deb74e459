package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/compiler"
	"github.com/roach88/ecsgen/internal/extract"
)

// ValidationIssue is a validation error located in one declaration file.
type ValidationIssue struct {
	File string `json:"file"`
	compiler.ValidationError
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Files        int               `json:"files"`
	Declarations int               `json:"declarations"`
	Errors       []ValidationIssue `json:"errors,omitempty"`
	Malformed    []MalformedInfo   `json:"malformed,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [specs-dir]",
		Short: "Validate declarations without generating",
		Long: `Validate declaration files without generating units.

Checks declaration shape (names, kinds, attribute arguments) and runs
extraction to report declarations that would be dropped as malformed.
Defaults to the project's specs directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(ctx context.Context, opts *RootOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.projectConfig()
	if err != nil {
		return outputLoadError(formatter, err)
	}
	filter := specsFilter(cfg)
	if len(args) == 1 {
		filter.Root = args[0]
	}

	// Collect every compile error; one broken file should not hide the rest.
	loadResult, loadErrors := LoadSources(filter, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d declaration file(s) in %s", loadResult.FileCount, filter.Root)

	result := ValidationResult{
		Files:        loadResult.FileCount,
		Declarations: loadResult.Declarations,
	}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, loadIssue(err))
	}
	for _, f := range loadResult.Files {
		formatter.VerboseLog("Validating %s (%d declaration(s))", f.Path, len(f.Declarations))
		for _, ve := range compiler.Validate(f.Declarations) {
			result.Errors = append(result.Errors, ValidationIssue{File: f.Path, ValidationError: ve})
		}
	}

	malformed, err := findMalformed(ctx, loadResult)
	if err != nil {
		return WrapExitError(ExitCommandError, "validation cancelled", err)
	}
	result.Malformed = malformed
	result.Valid = len(result.Errors) == 0 && len(result.Malformed) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func loadIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return ValidationIssue{
			File: loadErr.File,
			ValidationError: compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    line,
			},
		}
	}
	return ValidationIssue{ValidationError: compiler.ValidationError{
		Field:   "load",
		Message: err.Error(),
		Code:    ErrCodeGeneric,
	}}
}

// findMalformed extracts every declaration against the full set of
// declared types, the way a generation pass would.
func findMalformed(ctx context.Context, lr *LoadResult) ([]MalformedInfo, error) {
	known := make(map[string]bool)
	for _, f := range lr.Files {
		for _, d := range f.Declarations {
			known[d.FullName()] = true
		}
	}
	isKnown := func(name string) bool { return known[name] }

	var out []MalformedInfo
	for _, f := range lr.Files {
		for _, d := range f.Declarations {
			d.File = f.Path
			res := extract.Extract(ctx, extract.ResolveAttributes(d, isKnown))
			if res.Status == extract.NotApplicable && res.Err != nil {
				return nil, res.Err
			}
			var me *extract.MalformedError
			if res.Status == extract.Malformed && errors.As(res.Err, &me) {
				out = append(out, MalformedInfo{
					Declaration: me.Declaration,
					File:        me.File,
					Category:    me.Category.String(),
					Message:     me.Message,
				})
			}
		}
	}
	return out, nil
}

func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	count := len(result.Errors) + len(result.Malformed)
	if f.Format == "json" {
		if err := f.Error(ErrCodeCompileFailed, fmt.Sprintf("%d validation error(s)", count), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", count))
	}

	for _, e := range result.Errors {
		f.Status(StatusFail, "%s: %s", e.File, e.Error())
	}
	for _, m := range result.Malformed {
		f.Status(StatusFail, "%s: [%s] malformed %s %s: %s", m.File, ErrCodeMalformed, m.Category, m.Declaration, m.Message)
	}
	fmt.Fprintf(f.Writer, "\n%d validation error(s) found\n", count)
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", count))
}

func outputValidateSuccess(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}
	f.Status(StatusOK, "All declarations valid (%d declaration(s) in %d file(s))", result.Declarations, result.Files)
	return nil
}
