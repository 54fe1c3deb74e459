package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ecsgen/internal/combine"
	"github.com/roach88/ecsgen/internal/dispatch"
	"github.com/roach88/ecsgen/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Unit string // print one unit's text
}

// ContextView is a context and everything resolved into it.
type ContextView struct {
	Name       string   `json:"name"`
	Components []string `json:"components"`
	Systems    []string `json:"systems"`
	Groups     []string `json:"groups,omitempty"`
	Features   []string `json:"features,omitempty"`
}

// ComponentView is a component and its contexts.
type ComponentView struct {
	Name     string   `json:"name"`
	Contexts []string `json:"contexts"`
	Fields   []string `json:"fields,omitempty"`
	Unique   bool     `json:"unique,omitempty"`
	Index    string   `json:"index,omitempty"`
	Cleanup  string   `json:"cleanup,omitempty"`
	Events   []string `json:"events,omitempty"`
}

// SystemView is a system, its phases and its contexts.
type SystemView struct {
	Name     string   `json:"name"`
	Contexts []string `json:"contexts"`
	Phases   []string `json:"phases"`
	Triggers []string `json:"triggers,omitempty"`
	EntityIs []string `json:"entity_is,omitempty"`
}

// MemberView is a group, feature or listener and the contexts it applies to.
type MemberView struct {
	Name     string   `json:"name"`
	Members  []string `json:"members,omitempty"`
	Contexts []string `json:"contexts"`
}

// InspectResult is the joined view of the last pass.
type InspectResult struct {
	Contexts    []ContextView        `json:"contexts"`
	Components  []ComponentView      `json:"components"`
	Systems     []SystemView         `json:"systems"`
	Groups      []MemberView         `json:"groups"`
	Features    []MemberView         `json:"features"`
	Listeners   []MemberView         `json:"listeners"`
	Units       []dispatch.Unit      `json:"units"`
	Malformed   []MalformedInfo      `json:"malformed,omitempty"`
	Diagnostics []combine.Diagnostic `json:"diagnostics,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show resolved contexts, members and units",
		Long: `Run a pass in memory and print what the declarations resolved to.

Shows which contexts each component and system landed in, which groups
apply where, and the identity of every unit. Nothing is written.

Examples:
  ecsgen inspect
  ecsgen inspect --format json
  ecsgen inspect --unit Demo.Game.g.cs`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Unit, "unit", "", "print the text of one unit")

	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, cmd *cobra.Command) error {
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

	p, err := openProject(opts.RootOptions, projectOptions{Memory: true})
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer p.Close()

	report, err := p.engine.Pass(ctx, loadResult.Files, nil)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "inspect failed", err)
	}

	if opts.Unit != "" {
		text, ok := p.memory.Text(opts.Unit)
		if !ok {
			formatter.Error(ErrCodeNotFound, fmt.Sprintf("unit not found: %s", opts.Unit), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("unit not found: %s", opts.Unit))
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]string{"identity": opts.Unit, "text": text})
		}
		fmt.Fprint(formatter.Writer, text)
		return nil
	}

	result := buildInspectResult(p.engine.Last(), report.Dispatch)
	result.Malformed = malformedInfos(report)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	printInspectText(formatter, result)
	return nil
}

func buildInspectResult(r *combine.Result, dr *dispatch.Report) InspectResult {
	out := InspectResult{
		Contexts:    []ContextView{},
		Components:  []ComponentView{},
		Systems:     []SystemView{},
		Groups:      []MemberView{},
		Features:    []MemberView{},
		Listeners:   []MemberView{},
		Units:       []dispatch.Unit{},
		Diagnostics: r.Diagnostics,
	}
	for _, c := range r.Contexts {
		out.Contexts = append(out.Contexts, ContextView{
			Name:       c.Fact.Type.FullName,
			Components: factNames(c.Components),
			Systems:    factNames(c.Systems),
			Groups:     factNames(c.Groups),
			Features:   factNames(c.Features),
		})
	}
	for _, c := range r.Components {
		f := c.Fact
		view := ComponentView{
			Name:     f.Type.FullName,
			Contexts: nonNil(c.Contexts.FullNames()),
			Unique:   f.Unique,
			Index:    f.Index.Kind.String(),
			Cleanup:  f.Cleanup.String(),
		}
		for _, fd := range f.Fields {
			view.Fields = append(view.Fields, fd.Type+" "+fd.Name)
		}
		for _, e := range f.Events {
			view.Events = append(view.Events, fmt.Sprintf("%s %s #%d", e.Target, e.Kind, e.Order))
		}
		out.Components = append(out.Components, view)
	}
	for _, s := range r.Systems {
		view := SystemView{
			Name:     s.Fact.Type.FullName,
			Contexts: nonNil(s.Contexts.FullNames()),
			Phases:   phases(s.Fact),
			EntityIs: factNames(s.EntityIs),
		}
		for _, t := range s.Triggers {
			view.Triggers = append(view.Triggers, t.Component.Type.FullName+" "+t.Kind.String())
		}
		out.Systems = append(out.Systems, view)
	}
	for _, g := range r.Groups {
		out.Groups = append(out.Groups, MemberView{
			Name:     g.Fact.Type.FullName,
			Members:  factNames(g.Components),
			Contexts: nonNil(g.Contexts.FullNames()),
		})
	}
	for _, f := range r.Features {
		members := append(factNames(f.Components), factNames(f.Systems)...)
		out.Features = append(out.Features, MemberView{
			Name:     f.Fact.Type.FullName,
			Members:  members,
			Contexts: nonNil(f.Contexts.FullNames()),
		})
	}
	for _, l := range r.Listeners {
		out.Listeners = append(out.Listeners, MemberView{
			Name:     l.Fact.Type.FullName,
			Members:  []string{l.Fact.Component.FullName},
			Contexts: nonNil(l.Contexts.FullNames()),
		})
	}
	if dr != nil {
		out.Units = append(out.Units, dr.Units...)
	}
	return out
}

func factNames[T ir.Fact](facts []T) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.Identity().FullName)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func phases(s *ir.SystemFact) []string {
	var out []string
	for _, p := range []struct {
		name  string
		phase ir.Phase
	}{
		{"initialize", s.Initialize},
		{"execute", s.Execute},
		{"reactive", s.Reactive},
	} {
		if p.phase.Enabled {
			out = append(out, fmt.Sprintf("%s(%s,%d)", p.name, p.phase.Stage, p.phase.Order))
		}
	}
	return out
}

func printInspectText(f *OutputFormatter, r InspectResult) {
	w := f.Writer
	section := func(title string, n int) {
		fmt.Fprintf(w, "\n%s (%d)\n", title, n)
	}

	section("Contexts", len(r.Contexts))
	for _, c := range r.Contexts {
		fmt.Fprintf(w, "  %s\n", c.Name)
		fmt.Fprintf(w, "    components: %s\n", list(c.Components))
		fmt.Fprintf(w, "    systems:    %s\n", list(c.Systems))
		if len(c.Groups) > 0 {
			fmt.Fprintf(w, "    groups:     %s\n", list(c.Groups))
		}
		if len(c.Features) > 0 {
			fmt.Fprintf(w, "    features:   %s\n", list(c.Features))
		}
	}

	section("Components", len(r.Components))
	for _, c := range r.Components {
		fmt.Fprintf(w, "  %s -> %s\n", c.Name, list(c.Contexts))
	}

	section("Systems", len(r.Systems))
	for _, s := range r.Systems {
		fmt.Fprintf(w, "  %s [%s] -> %s\n", s.Name, strings.Join(s.Phases, " "), list(s.Contexts))
	}

	for _, m := range []struct {
		title   string
		members []MemberView
	}{
		{"Groups", r.Groups},
		{"Features", r.Features},
		{"Listeners", r.Listeners},
	} {
		if len(m.members) == 0 {
			continue
		}
		section(m.title, len(m.members))
		for _, v := range m.members {
			fmt.Fprintf(w, "  %s (%s) -> %s\n", v.Name, list(v.Members), list(v.Contexts))
		}
	}

	section("Units", len(r.Units))
	for _, u := range r.Units {
		if u.Failed {
			f.Status(StatusFail, "%s (%s): %s", u.Identity, u.Generator, u.Error)
			continue
		}
		fmt.Fprintf(w, "  %s\n", u.Identity)
	}

	for _, m := range r.Malformed {
		f.Status(StatusWarn, "%s: malformed %s %s: %s", m.File, m.Category, m.Declaration, m.Message)
	}
	for _, d := range r.Diagnostics {
		f.Status(StatusWarn, "%s %s: %s", d.Kind, d.Subject, d.Message)
	}
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
