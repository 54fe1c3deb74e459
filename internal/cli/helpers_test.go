package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const componentsCUE = `namespace: "Demo"
imports: ["Entitas.Generators.Attributes"]

declarations: PositionComponent: {
	attributes: [{name: "Component"}]
	members: [
		{name: "x", type: "float"},
		{name: "y", type: "float"},
	]
}
`

const contextsCUE = `namespace: "Demo"
imports: ["Entitas.Generators.Attributes"]

declarations: Game: attributes: [
	{name: "Context"},
	{name: "Components", args: [{types: ["PositionComponent"]}]},
]
`

const malformedCUE = `namespace: "Demo"
imports: ["Entitas.Generators.Attributes"]

declarations: IdleSystem: attributes: [{name: "Reactive"}]
`

const (
	entityUnit    = "Demo.Game.Demo.PositionComponent.Entity.g.cs"
	componentUnit = "Demo.PositionComponent.g.cs"
)

// newProject writes spec files under <root>/specs and returns root.
func newProject(t *testing.T, specs map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range specs {
		writeFile(t, filepath.Join(root, "specs", name), content)
	}
	return root
}

func gameProject(t *testing.T) string {
	return newProject(t, map[string]string{
		"components.cue": componentsCUE,
		"contexts.cue":   contextsCUE,
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs the root command against a project.
func execute(t *testing.T, project string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--project", project}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
