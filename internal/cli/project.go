package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/ecsgen/internal/config"
	"github.com/roach88/ecsgen/internal/engine"
	"github.com/roach88/ecsgen/internal/logger"
	"github.com/roach88/ecsgen/internal/sink"
	"github.com/roach88/ecsgen/internal/store"
	"github.com/roach88/ecsgen/internal/watch"
)

// projectOptions override config values from command flags. Zero values
// keep the config.
type projectOptions struct {
	OutputDir  string
	Manifest   string
	NoManifest bool
	Workers    int
	Memory     bool // keep units in memory instead of writing them
}

// project is an engine wired to the configured output.
type project struct {
	cfg      *config.Config
	filter   watch.Filter
	engine   *engine.Engine
	dir      *sink.DirSink
	memory   *sink.MemorySink
	manifest *store.Store
}

// specsFilter selects the declaration files of a project.
func specsFilter(cfg *config.Config) watch.Filter {
	return watch.Filter{
		Root:      cfg.Path(cfg.SpecsDir),
		Extension: cfg.Extension,
		Ignore:    cfg.Watch.Ignore,
	}
}

// openProject builds the engine, its sink and, unless disabled, the
// manifest.
func openProject(opts *RootOptions, po projectOptions) (*project, error) {
	cfg, err := opts.projectConfig()
	if err != nil {
		return nil, err
	}
	p := &project{cfg: cfg, filter: specsFilter(cfg)}

	workers := cfg.Workers
	if po.Workers > 0 {
		workers = po.Workers
	}
	engineOpts := []engine.Option{
		engine.WithWorkers(workers),
		engine.WithLogger(logger.ForComponent("engine")),
	}

	if po.Memory {
		p.memory = sink.NewMemorySink()
		p.engine = engine.New(p.memory, engineOpts...)
		return p, nil
	}

	if !po.NoManifest {
		path := cfg.Path(cfg.Manifest)
		if po.Manifest != "" {
			path = po.Manifest
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("create manifest dir: %v", err)}
		}
		m, err := store.Open(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeManifest, Message: err.Error(), File: path}
		}
		p.manifest = m
		engineOpts = append(engineOpts, engine.WithManifest(m))
	}

	out := cfg.Path(cfg.OutputDir)
	if po.OutputDir != "" {
		out = po.OutputDir
	}
	dir, err := sink.NewDirSink(out, p.manifest, logger.ForComponent("sink"))
	if err != nil {
		p.Close()
		return nil, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error(), File: out}
	}
	p.dir = dir
	p.engine = engine.New(dir, engineOpts...)
	return p, nil
}

// stats returns the sink counters.
func (p *project) stats() sink.Stats {
	if p.dir != nil {
		return p.dir.Stats()
	}
	return p.memory.Stats()
}

// Close releases the manifest.
func (p *project) Close() error {
	if p.manifest == nil {
		return nil
	}
	return p.manifest.Close()
}
