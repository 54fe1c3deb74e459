package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/harness"
	"github.com/roach88/ecsgen/internal/logger"
)

// DefaultScenariosDir is where the test command looks without an argument.
const DefaultScenariosDir = "testdata/scenarios"

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Base        string // directory scenario spec paths are relative to
	Update      bool   // regenerate golden files
	Filter      string // scenario filter (glob pattern)
	Determinism bool   // also check order independence and idle passes
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Passes int      `json:"passes,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [scenarios-dir]",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against the generator.

Each scenario runs an initial pass over its spec files, then one pass per
step, checking unit and pass-report assertions after each. When a golden
file exists under <scenarios-dir>/golden, the final units must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ecsgen test
  ecsgen test ./testdata/scenarios --filter "position*"
  ecsgen test --update
  ecsgen test --determinism --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(rootOpts.Project, DefaultScenariosDir)
			if len(args) == 1 {
				dir = args[0]
			}
			return runTests(cmd.Context(), opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", "", "directory spec paths are relative to (default: project root)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Determinism, "determinism", false, "check file-order independence and idle passes")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Filter != "" && !doublestar.ValidatePattern(opts.Filter) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid filter pattern: %s", opts.Filter))
	}

	base := opts.Base
	if base == "" {
		base = opts.Project
	}
	if base == "" {
		base = "."
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(ctx, scenarioFile, base, opts)
		if errors.Is(ctx.Err(), context.Canceled) {
			return WrapExitError(ExitCommandError, "test run cancelled", ctx.Err())
		}
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := outputTestJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputTestText(cmd, opts, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// findScenarioFiles finds all YAML scenario files in a directory. The
// filter matches the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{yaml,yml}", doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range matches {
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
			if ok, _ := doublestar.Match(filter, name); !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return files, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(ctx context.Context, scenarioFile, base string, opts *TestOptions) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))

	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, base)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}}
	}

	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger.ForComponent("harness")))
	if err != nil {
		return ScenarioResult{Name: scenario.Name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}
	}
	out := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Passes: len(result.Reports), Errors: result.Errors}

	if opts.Determinism {
		if err := harness.CheckDeterminism(ctx, scenario); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, err.Error())
		}
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return out
	}

	if _, err := os.Stat(goldenPath); os.IsNotExist(err) {
		return out
	}
	match, err := compareWithGolden(scenario, result, goldenPath)
	switch {
	case err != nil:
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		out.Pass = false
		out.Errors = append(out.Errors, "units do not match golden file (run with --update to regenerate)")
	}
	return out
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the current snapshot as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to snapshot units: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result snapshot against the golden file.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	current, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return false, fmt.Errorf("failed to snapshot units: %w", err)
	}
	return bytes.Equal(goldenData, current), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTestText outputs one status line per scenario and a summary.
func outputTestText(cmd *cobra.Command, opts *TestOptions, result TestResult) {
	f := &OutputFormatter{Format: "text", Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	for _, s := range result.Scenarios {
		if s.Pass {
			suffix := ""
			if opts.Update {
				suffix = " (golden updated)"
			}
			f.Status(StatusOK, "%s%s", s.Name, suffix)
			continue
		}
		f.Status(StatusFail, "%s", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e)
		}
	}

	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Passed: %d, Failed: %d, Total: %d\n", result.Passed, result.Failed, result.Total)
}
