package cli

import (
	"context"
	"errors"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/engine"
	"github.com/roach88/ecsgen/internal/logger"
	"github.com/roach88/ecsgen/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	OutputDir string
	Workers   int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate on declaration file changes",
		Long: `Run a generation pass, then watch the specs directory and run an
incremental pass for every debounced batch of file changes.

Only changed files are recompiled; only changed units are rewritten.
A file that fails to compile keeps its previous declarations until it is
fixed. Stop with Ctrl+C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory (overrides output_dir)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent extractions (overrides workers)")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, cmd *cobra.Command) error {
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
	filter := specsFilter(cfg)

	// Files that fail to compile at startup are picked up once fixed.
	loadResult, loadErrors := LoadSources(filter, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}
	for _, err := range loadErrors {
		formatter.Status(StatusWarn, "%v", err)
	}

	p, err := openProject(opts.RootOptions, projectOptions{
		OutputDir: opts.OutputDir,
		Workers:   opts.Workers,
	})
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer p.Close()

	report, err := p.engine.Pass(ctx, loadResult.Files, nil)
	if report == nil {
		return WrapExitError(ExitCommandError, "initial pass failed", err)
	}
	printWatchPass(formatter, report, err)

	known, err := filter.Discover()
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeScanError, Message: err.Error()})
	}

	w := watch.New(filter, cfg.Watch.Debounce, known, watch.WithLogger(logger.ForComponent("watch")))
	handler := newWatchHandler(p.engine, filter, formatter)
	if err := w.Run(ctx, handler); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// newWatchHandler compiles the changed files of a batch and runs one pass.
// Files that no longer compile are left out of the pass so their previous
// declarations stay in effect.
func newWatchHandler(e *engine.Engine, filter watch.Filter, f *OutputFormatter) watch.Handler {
	cuectx := cuecontext.New()
	return func(ctx context.Context, b watch.Batch) error {
		var changed []engine.SourceFile
		for _, path := range b.Changed {
			sf, err := LoadFile(cuectx, filter.Root, path)
			if err != nil {
				f.Status(StatusFail, "%v", err)
				continue
			}
			changed = append(changed, sf)
		}
		removed := make([]string, 0, len(b.Removed))
		for _, path := range b.Removed {
			removed = append(removed, sourceName(filter.Root, path))
		}
		if len(changed) == 0 && len(removed) == 0 {
			return nil
		}

		report, err := e.Pass(ctx, changed, removed)
		if report == nil {
			return fmt.Errorf("pass: %w", err)
		}
		printWatchPass(f, report, err)
		if err != nil && !engine.IsEmitError(err) && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func printWatchPass(f *OutputFormatter, r *engine.PassReport, emitErr error) {
	if f.Format == "json" {
		f.Success(r)
		return
	}
	level := StatusOK
	if r.Malformed > 0 || len(r.Failures) > 0 || emitErr != nil {
		level = StatusWarn
	}
	f.Status(level, "pass %d: %d extracted, %d reused, %d unit(s) changed, %d removed",
		r.Seq, r.Extracted, r.Reused, r.Changed, r.RemovedUnits)
	for _, m := range r.Malformations {
		f.Status(StatusWarn, "%v", m)
	}
	if emitErr != nil {
		f.Status(StatusFail, "%v", emitErr)
	}
}
