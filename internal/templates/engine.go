// Package templates renders C# source units from extended facts.
//
// Rendering is a pure function of its input: the same view always yields
// the same bytes, and nothing reads the clock or the environment.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/roach88/ecsgen/internal/ir"
)

//go:embed cs/*.tmpl
var files embed.FS

// Template names.
const (
	ComponentDeclaration = "component_declaration.tmpl"
	ComponentContexts    = "component_contexts.tmpl"
	ComponentEvents      = "component_events.tmpl"
	ComponentIndex       = "component_index.tmpl"
	ComponentCleanup     = "component_cleanup.tmpl"
	EntityExtension      = "entity_extension.tmpl"
	ContextDeclaration   = "context_declaration.tmpl"
	ContextSystems       = "context_systems.tmpl"
	SystemDeclaration    = "system_declaration.tmpl"
	FeatureDeclaration   = "feature_declaration.tmpl"
	ListenerDeclaration  = "listener_declaration.tmpl"
	failure              = "failure.tmpl"
)

// Engine is the template rendering engine. It is safe for concurrent use.
type Engine struct {
	tmpl *template.Template
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tmpl, err := template.New("cs").Funcs(funcs).ParseFS(files, "cs/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{tmpl: tmpl}, nil
}

// MustNewEngine is like NewEngine but panics on error. The templates are
// embedded, so an error here is a build defect.
func MustNewEngine() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return e
}

// Render executes the named template.
func (e *Engine) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Failure renders the unit emitted in place of one whose generation failed.
func (e *Engine) Failure(identity string, cause error) string {
	text, err := e.Render(failure, failureView{
		Header:   Header(),
		Identity: identity,
		Message:  strings.ReplaceAll(cause.Error(), "*/", "* /"),
	})
	if err != nil {
		// The failure template has no inputs that can fail.
		return Header() + "/* generation failed for " + identity + " */\n"
	}
	return text
}

type failureView struct {
	Header   string
	Identity string
	Message  string
}

// Header is the auto-generated banner at the top of every unit.
func Header() string {
	return "//------------------------------------------------------------------------------\n" +
		"// <auto-generated>\n" +
		"//     This code was generated by ecsgen " + ir.GeneratorVersion + ".\n" +
		"//     Changes to this file may cause incorrect behavior and will be lost if\n" +
		"//     the code is regenerated.\n" +
		"// </auto-generated>\n" +
		"//------------------------------------------------------------------------------\n"
}

var funcs = template.FuncMap{
	"header": Header,
	"join":   strings.Join,
	"quote":  func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"` },
	"quoteAll": func(ss []string) string {
		q := make([]string, len(ss))
		for i, s := range ss {
			q[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
		}
		return strings.Join(q, ", ")
	},
	"params": func(fields []ir.FieldFact) string {
		ps := make([]string, len(fields))
		for i, f := range fields {
			ps[i] = f.Type + " " + f.Name
		}
		return strings.Join(ps, ", ")
	},
	"qualify": qualify,
	"fieldNames": func(fields []ir.FieldFact) []string {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		return names
	},
	"contextNames": func(refs []ContextRef) []string {
		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = r.FullName
		}
		return names
	},
	"indent": func(n int, s string) string {
		pad := strings.Repeat(" ", n)
		lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
		for i, l := range lines {
			if l != "" {
				lines[i] = pad + l
			}
		}
		return strings.Join(lines, "\n")
	},
}
