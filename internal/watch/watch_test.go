package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestPendingCoalesces(t *testing.T) {
	q := newPending(30*time.Millisecond, 0)
	q.add("b.cue")
	q.add("a.cue")
	q.add("b.cue")
	assert.False(t, q.full())

	select {
	case <-q.timer.C:
	case <-time.After(2 * time.Second):
		t.Fatal("window never elapsed")
	}
	assert.Equal(t, []string{"a.cue", "b.cue"}, q.take())
	assert.Empty(t, q.take())
}

func TestPendingFillsAtMaxBatch(t *testing.T) {
	q := newPending(time.Hour, 2)
	q.add("a.cue")
	assert.False(t, q.full())
	q.add("a.cue")
	assert.False(t, q.full(), "paths are distinct")
	q.add("b.cue")
	assert.True(t, q.full())

	assert.Equal(t, []string{"a.cue", "b.cue"}, q.take())
	assert.False(t, q.full())
}

func TestPendingTakeStopsWindow(t *testing.T) {
	q := newPending(10*time.Millisecond, 0)
	q.add("a.cue")
	q.take()

	select {
	case <-q.timer.C:
		t.Fatal("stopped window fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFilterDiscover(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "game.cue"), "")
	write(t, filepath.Join(root, "ui", "hud.cue"), "")
	write(t, filepath.Join(root, "ui", "notes.txt"), "")
	write(t, filepath.Join(root, ".cache", "old.cue"), "")
	write(t, filepath.Join(root, "vendor", "lib.cue"), "")

	f := Filter{Root: root, Extension: ".cue", Ignore: []string{"**/.*", "**/.*/**", "vendor/**"}}
	files, err := f.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "game.cue"),
		filepath.Join(root, "ui", "hud.cue"),
	}, files)

	assert.True(t, f.Wants(filepath.Join(root, "x.cue")))
	assert.False(t, f.Wants(filepath.Join(root, "x.txt")))
	assert.False(t, f.Wants(filepath.Join(root, "vendor", "x.cue")))
	assert.False(t, f.Ignored(root))
}

func TestClassifyRemovedDirectory(t *testing.T) {
	root := t.TempDir()
	kept := filepath.Join(root, "game.cue")
	gone := filepath.Join(root, "ui", "hud.cue")
	write(t, kept, "")

	w := New(Filter{Root: root, Extension: ".cue"}, time.Millisecond, []string{kept, gone}, WithLogger(quiet))
	b := w.classify([]string{kept, filepath.Join(root, "ui")})
	assert.Equal(t, []string{kept}, b.Changed)
	assert.Equal(t, []string{gone}, b.Removed)

	b = w.classify([]string{filepath.Join(root, "ui")})
	assert.True(t, b.Empty(), "already reported")
}

func TestRunDeliversBatches(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "game.cue")
	write(t, existing, "a")

	w := New(Filter{Root: root, Extension: ".cue", Ignore: []string{"**/*.tmp"}}, 20*time.Millisecond,
		[]string{existing}, WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan Batch, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, b Batch) error {
			batches <- b
			return nil
		})
	}()

	added := filepath.Join(root, "ui.cue")
	wait := func(pred func(Batch) bool) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case b := <-batches:
				if pred(b) {
					return
				}
			case <-deadline:
				t.Fatal("batch not delivered")
			}
		}
	}

	// The watch is registered asynchronously; keep touching until seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(added, []byte("b"), 0o644)
		select {
		case b := <-batches:
			return assert.ObjectsAreEqual([]string{added}, b.Changed)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(existing))
	wait(func(b Batch) bool { return len(b.Removed) == 1 && b.Removed[0] == existing })

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
