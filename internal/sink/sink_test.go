package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ecsgen/internal/dispatch"
	"github.com/roach88/ecsgen/internal/ir"
	"github.com/roach88/ecsgen/internal/store"
)

func mkUnit(id, text string) dispatch.Unit {
	return dispatch.Unit{Identity: id, Generator: "component.declaration", Text: text, Hash: ir.ContentHash(text)}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySink()

	require.NoError(t, m.Emit(ctx, mkUnit("b.g.cs", "B")))
	require.NoError(t, m.Emit(ctx, mkUnit("a.g.cs", "A")))
	require.NoError(t, m.Emit(ctx, mkUnit("a.g.cs", "A")))

	assert.Equal(t, []string{"a.g.cs", "b.g.cs"}, m.Identities())
	text, ok := m.Text("a.g.cs")
	assert.True(t, ok)
	assert.Equal(t, "A", text)
	assert.Equal(t, Stats{Written: 2, Skipped: 1, Bytes: 2}, m.Stats())

	require.NoError(t, m.Remove(ctx, "a.g.cs"))
	require.NoError(t, m.Remove(ctx, "missing.g.cs"))
	assert.Equal(t, []string{"b.g.cs"}, m.Identities())
	assert.Equal(t, 1, m.Stats().Removed)
}

func TestInvalidIdentity(t *testing.T) {
	ctx := context.Background()
	for _, id := range []string{"", "..", "../escape.g.cs", `a\b.g.cs`} {
		assert.Error(t, NewMemorySink().Emit(ctx, mkUnit(id, "x")), id)
	}
}

func TestDirSinkWritesAndRemoves(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	d, err := NewDirSink(dir, nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.Emit(ctx, mkUnit("Demo.Game.g.cs", "class Game {}")))
	data, err := os.ReadFile(filepath.Join(dir, "Demo.Game.g.cs"))
	require.NoError(t, err)
	assert.Equal(t, "class Game {}", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, d.Remove(ctx, "Demo.Game.g.cs"))
	require.NoError(t, d.Remove(ctx, "Demo.Game.g.cs"), "removing twice is fine")
	_, err = os.Stat(filepath.Join(dir, "Demo.Game.g.cs"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, Stats{Written: 1, Removed: 1, Bytes: 13}, d.Stats())
}

func TestDirSinkSkipsUnchangedAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "out")
	dbPath := filepath.Join(root, "manifest.db")

	m1, err := store.Open(dbPath)
	require.NoError(t, err)
	d1, err := NewDirSink(dir, m1, nil)
	require.NoError(t, err)
	d1.BeginPass("pass-1", 1)
	require.NoError(t, d1.Emit(ctx, mkUnit("x.g.cs", "X")))
	require.NoError(t, m1.Close())

	m2, err := store.Open(dbPath)
	require.NoError(t, err)
	defer m2.Close()
	d2, err := NewDirSink(dir, m2, nil)
	require.NoError(t, err)
	d2.BeginPass("pass-2", 2)

	require.NoError(t, d2.Emit(ctx, mkUnit("x.g.cs", "X")))
	assert.Equal(t, 1, d2.Stats().Skipped)

	e, ok, err := m2.Unit(ctx, "x.g.cs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pass-1", e.PassToken, "skipped units keep their writer")

	// A deleted file is rewritten even though the manifest matches.
	require.NoError(t, os.Remove(filepath.Join(dir, "x.g.cs")))
	require.NoError(t, d2.Emit(ctx, mkUnit("x.g.cs", "X")))
	assert.Equal(t, 1, d2.Stats().Written)

	e, _, err = m2.Unit(ctx, "x.g.cs")
	require.NoError(t, err)
	assert.Equal(t, "pass-2", e.PassToken)
	assert.Equal(t, int64(2), e.Seq)

	require.NoError(t, d2.Remove(ctx, "x.g.cs"))
	_, ok, err = m2.Unit(ctx, "x.g.cs")
	require.NoError(t, err)
	assert.False(t, ok)
}
