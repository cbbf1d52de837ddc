package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/plugin"
)

// Source names the document an Analyzer reads. Exactly one of Metafile and
// Graph is set.
type Source struct {
	// Metafile is an esbuild metafile
	Metafile string
	// Graph is a snapshot document written by another host
	Graph string

	// Metafile adapter options
	WorkingDir string
	OutDir     string
	Aliases    map[string]string
}

// Path returns the document path
func (s Source) Path() string {
	if s.Metafile != "" {
		return s.Metafile
	}
	return s.Graph
}

// Analyzer runs the plugin signals over an existing build document
type Analyzer struct {
	plugin *plugin.Plugin
	source Source
}

// NewAnalyzer creates an analyzer for source
func NewAnalyzer(p *plugin.Plugin, source Source) (*Analyzer, error) {
	switch {
	case source.Metafile != "" && source.Graph != "":
		return nil, errors.New("--metafile and --graph are mutually exclusive")
	case source.Metafile == "" && source.Graph == "":
		return nil, errors.New("one of --metafile or --graph is required")
	}
	return &Analyzer{plugin: p, source: source}, nil
}

// Load reads the source document into a snapshot
func (a *Analyzer) Load() (*graph.Snapshot, error) {
	if a.source.Graph != "" {
		return graph.LoadSnapshotFile(a.source.Graph)
	}
	return graph.LoadMetafileFile(a.source.Metafile, graph.MetafileOptions{
		WorkingDir: a.source.WorkingDir,
		OutDir:     a.source.OutDir,
		Aliases:    a.source.Aliases,
	})
}

// Run raises Initialize, ModulesFinalized and BuildDone for the source
// document. A document that cannot be loaded fails the run before any
// classifier runs.
func (a *Analyzer) Run(ctx context.Context) error {
	initErr := a.plugin.Initialize(ctx)

	snap, err := a.Load()
	if err != nil {
		return err
	}

	return errors.Join(initErr, a.plugin.Analyze(ctx, snap))
}

// Watch runs the analysis once, then again whenever the source document is
// written, until ctx is done. Runs are sequential; a failing run is passed
// to onError and watching continues.
func (a *Analyzer) Watch(ctx context.Context, onError func(error)) error {
	target, err := filepath.Abs(a.source.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", a.source.Path(), err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors and bundlers often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	a.runReported(ctx, onError)
	log.Info().Str("path", target).Msg("Watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isChange(event, target) {
				continue
			}
			log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Source changed")
			a.runReported(ctx, onError)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (a *Analyzer) runReported(ctx context.Context, onError func(error)) {
	if err := a.Run(ctx); err != nil && onError != nil {
		onError(err)
	}
}

// isChange reports whether event writes or creates target
func isChange(event fsnotify.Event, target string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return abs == target
}
