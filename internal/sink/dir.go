package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/ecsgen/internal/dispatch"
	"github.com/roach88/ecsgen/internal/store"
)

// DirSink writes each unit to <dir>/<identity>. Writes are atomic (temp
// file and rename). When a manifest is attached, a unit whose content hash
// matches the manifest and whose file still exists is not rewritten.
type DirSink struct {
	dir      string
	manifest *store.Store
	logger   *slog.Logger

	mu    sync.Mutex
	token string
	seq   int64
	stats Stats
}

// NewDirSink creates dir if needed. manifest may be nil.
func NewDirSink(dir string, manifest *store.Store, logger *slog.Logger) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSink{dir: dir, manifest: manifest, logger: logger}, nil
}

// Dir returns the output directory.
func (d *DirSink) Dir() string { return d.dir }

// BeginPass implements PassAware.
func (d *DirSink) BeginPass(token string, seq int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token, d.seq = token, seq
}

func (d *DirSink) Emit(ctx context.Context, u dispatch.Unit) error {
	if err := validIdentity(u.Identity); err != nil {
		return err
	}
	path := filepath.Join(d.dir, u.Identity)

	if d.manifest != nil {
		e, ok, err := d.manifest.Unit(ctx, u.Identity)
		if err != nil {
			return err
		}
		if ok && e.ContentHash == u.Hash && fileExists(path) {
			d.mu.Lock()
			d.stats.Skipped++
			d.mu.Unlock()
			d.logger.Debug("unit unchanged on disk", "unit", u.Identity)
			return nil
		}
	}

	if err := writeAtomic(path, []byte(u.Text)); err != nil {
		return fmt.Errorf("write %s: %w", u.Identity, err)
	}

	d.mu.Lock()
	d.stats.Written++
	d.stats.Bytes += int64(len(u.Text))
	token, seq := d.token, d.seq
	d.mu.Unlock()

	if d.manifest != nil {
		return d.manifest.PutUnit(ctx, store.Entry{
			Identity:    u.Identity,
			Generator:   u.Generator,
			ContentHash: u.Hash,
			Size:        int64(len(u.Text)),
			Failed:      u.Failed,
			PassToken:   token,
			Seq:         seq,
		})
	}
	return nil
}

func (d *DirSink) Remove(ctx context.Context, identity string) error {
	if err := validIdentity(identity); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.dir, identity))
	switch {
	case err == nil:
		d.mu.Lock()
		d.stats.Removed++
		d.mu.Unlock()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("remove %s: %w", identity, err)
	}
	if d.manifest != nil {
		return d.manifest.DeleteUnit(ctx, identity)
	}
	return nil
}

// Stats returns activity counters.
func (d *DirSink) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ecsgen-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
