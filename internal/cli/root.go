package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/config"
	"github.com/roach88/ecsgen/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Project string // project root holding ecsgen.yaml

	// Set by the root PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ecsgen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ecsgen",
		Short: "ecsgen - incremental ECS code generator",
		Long: `Generate entity-component-system glue code from attribute declarations.

Declarations are read from CUE files under the project's specs directory.
Each pass re-extracts only the declarations whose syntax changed and writes
only the units whose text changed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return setupProject(opts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Project, "project", ".", "project root containing ecsgen.yaml")

	// Add subcommands
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupProject loads the project config and installs the logger. Log
// records go to the command's error stream so JSON output stays clean.
func setupProject(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	opts.Config = cfg

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log.level", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = logger.Init(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// projectConfig returns the loaded config, loading it from Project when
// the command runs without the root command.
func (o *RootOptions) projectConfig() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	root := o.Project
	if root == "" {
		root = "."
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	o.Config = cfg
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
