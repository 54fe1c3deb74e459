package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ecsgen.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, "specs", cfg.SpecsDir)
	assert.Equal(t, "generated", cfg.OutputDir)
	assert.Equal(t, ".ecsgen/manifest.db", cfg.Manifest)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ".cue", cfg.Extension)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"**/.*", "**/*~"}, cfg.Watch.Ignore)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
specs_dir: decls
output_dir: Assets/Generated
workers: 2
watch:
  debounce: 1s
  ignore: ["**/tmp/**"]
log:
  format: json
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "decls", cfg.SpecsDir)
	assert.Equal(t, filepath.Join(dir, "Assets/Generated"), cfg.Path(cfg.OutputDir))
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"**/tmp/**"}, cfg.Watch.Ignore)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ".cue", cfg.Extension, "unset keys keep defaults")
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := writeConfig(t, "output_dir: from-file\n")
	t.Setenv("ECSGEN_OUTPUT_DIR", "from-env")
	t.Setenv("ECSGEN_WATCH_DEBOUNCE", "50ms")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers", "workers: 0\n", "workers must be at least 1"},
		{"extension", "extension: cue\n", "extension must start with '.'"},
		{"format", "log:\n  format: xml\n", "log.format must be text or json"},
		{"syntax", "workers: [\n", "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPathKeepsAbsolute(t *testing.T) {
	cfg := &Config{Root: "/project"}
	assert.Equal(t, "/abs/out", cfg.Path("/abs/out"))
	assert.Equal(t, filepath.Join("/project", "out"), cfg.Path("out"))
	assert.Equal(t, "", cfg.Path(""))
}
