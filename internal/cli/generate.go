package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/engine"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	OutputDir  string
	Manifest   string
	NoManifest bool
	Strict     bool
	Workers    int
}

// MalformedInfo describes a declaration dropped as malformed.
type MalformedInfo struct {
	Declaration string `json:"declaration"`
	File        string `json:"file"`
	Category    string `json:"category"`
	Message     string `json:"message"`
}

// GenerateResult holds the outcome of one generation pass.
type GenerateResult struct {
	OutputDir string             `json:"output_dir"`
	Files     int                `json:"files"`
	Report    *engine.PassReport `json:"report"`
	Malformed []MalformedInfo    `json:"malformed,omitempty"`
	Written   int                `json:"written"`
	Skipped   int                `json:"skipped"`
	Bytes     int64              `json:"bytes"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation pass",
		Long: `Run one generation pass over the project's declaration files.

Units are written to the output directory. The manifest records every
written unit; units it lists that the pass no longer produces are removed.

Exit codes:
  0 - Pass completed
  1 - Malformed declarations or failed units with --strict
  2 - Command error (missing specs, unreadable manifest, etc.)

Examples:
  ecsgen generate
  ecsgen generate --output ./Assets/Generated
  ecsgen generate --no-manifest --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory (overrides output_dir)")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "manifest database path (overrides manifest)")
	cmd.Flags().BoolVar(&opts.NoManifest, "no-manifest", false, "write every unit without a manifest")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on malformed declarations and failed units")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent extractions (overrides workers)")

	return cmd
}

func runGenerate(ctx context.Context, opts *GenerateOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.projectConfig()
	if err != nil {
		return outputLoadError(formatter, err)
	}
	loadResult, loadErrors := LoadSources(specsFilter(cfg), LoadModeFailFast)
	if len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d declaration file(s) in %s", loadResult.FileCount, cfg.SpecsDir)

	p, err := openProject(opts.RootOptions, projectOptions{
		OutputDir:  opts.OutputDir,
		Manifest:   opts.Manifest,
		NoManifest: opts.NoManifest,
		Workers:    opts.Workers,
	})
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer p.Close()

	report, passErr := p.engine.Pass(ctx, loadResult.Files, nil)
	if report == nil {
		if errors.Is(passErr, context.Canceled) {
			return WrapExitError(ExitCommandError, "generation cancelled", passErr)
		}
		formatter.Error(ErrCodeGeneric, passErr.Error(), nil)
		return WrapExitError(ExitCommandError, "generation failed", passErr)
	}

	stats := p.stats()
	result := GenerateResult{
		OutputDir: p.dir.Dir(),
		Files:     loadResult.FileCount,
		Report:    report,
		Malformed: malformedInfos(report),
		Written:   stats.Written,
		Skipped:   stats.Skipped,
		Bytes:     stats.Bytes,
	}

	if passErr != nil {
		formatter.Error(ErrCodeWriteFailed, passErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write units", passErr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printGenerateText(formatter, result)
	}

	if opts.Strict && (len(result.Malformed) > 0 || len(report.Failures) > 0) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d malformed declaration(s), %d failed unit(s)",
			len(result.Malformed), len(report.Failures)))
	}
	return nil
}

func malformedInfos(r *engine.PassReport) []MalformedInfo {
	out := make([]MalformedInfo, 0, len(r.Malformations))
	for _, m := range r.Malformations {
		out = append(out, MalformedInfo{
			Declaration: m.Declaration,
			File:        m.File,
			Category:    m.Category.String(),
			Message:     m.Message,
		})
	}
	return out
}

func printGenerateText(f *OutputFormatter, r GenerateResult) {
	rep := r.Report
	f.Status(StatusOK, "Pass %d: %d declaration(s) in %d file(s), %d fact(s)",
		rep.Seq, rep.Declarations, r.Files, rep.Facts)
	f.Status(StatusInfo, "%d unit(s): %d changed, %d removed, %d rendered, %d cached",
		rep.Units, rep.Changed, rep.RemovedUnits, rep.Rendered, rep.Hits)
	f.Status(StatusInfo, "Wrote %d file(s) (%s) to %s, %d unchanged on disk",
		r.Written, humanize.Bytes(uint64(r.Bytes)), r.OutputDir, r.Skipped)

	for _, m := range r.Malformed {
		f.Status(StatusWarn, "%s: malformed %s %s: %s", m.File, m.Category, m.Declaration, m.Message)
	}
	for _, d := range rep.Diagnostics {
		f.Status(StatusWarn, "%s %s: %s", d.Kind, d.Subject, d.Message)
	}
	for _, fl := range rep.Failures {
		f.Status(StatusFail, "%s (%s): %s", fl.Identity, fl.Generator, fl.Message)
	}
}

// outputLoadError prints a load or project error and maps it to an exit
// code.
func outputLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		details := map[string]any{}
		if loadErr.File != "" {
			details["file"] = loadErr.File
		}
		if loadErr.Pos.IsValid() {
			details["line"] = loadErr.Pos.Line()
		}
		if len(details) == 0 {
			f.Error(loadErr.Code, loadErr.Message, nil)
		} else {
			f.Error(loadErr.Code, loadErr.Message, details)
		}
		return WrapExitError(ExitCommandError, "load failed", err)
	}
	f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
