package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
)

// PluginName is the esbuild plugin name
const PluginName = "buildtrace"

// ESBuild returns an esbuild plugin raising the lifecycle signals. It turns
// on the metafile for the build. Analyzer failures are logged and reported,
// never added to the build's errors.
func (p *Plugin) ESBuild() api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			build.InitialOptions.Metafile = true
			opts := metafileOptions(build.InitialOptions)

			build.OnStart(func() (api.OnStartResult, error) {
				if err := p.Initialize(context.Background()); err != nil {
					log.Warn().Err(err).Msg("buildtrace initialize failed")
				}
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if err := p.HandleESBuildResult(context.Background(), result, opts); err != nil {
					log.Warn().Err(err).Msg("buildtrace analysis failed")
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

// HandleESBuildResult converts an esbuild result and raises ModulesFinalized
// then BuildDone. Without a metafile only BuildDone is raised.
func (p *Plugin) HandleESBuildResult(ctx context.Context, result *api.BuildResult, opts graph.MetafileOptions) error {
	snap := &graph.Snapshot{Context: opts.WorkingDir, Aliases: opts.Aliases}

	if result.Metafile != "" {
		meta, err := graph.ParseMetafile([]byte(result.Metafile))
		if err != nil {
			return fmt.Errorf("failed to read esbuild metafile: %w", err)
		}
		snap = graph.FromMetafile(meta, opts)
	} else {
		log.Debug().Msg("esbuild produced no metafile, skipping module classifiers")
	}

	snap.Hash = outputHash(result.OutputFiles)
	snap.HasErrors = len(result.Errors) > 0
	snap.HasWarnings = len(result.Warnings) > 0

	if result.Metafile == "" {
		return p.BuildDone(ctx, BuildResult{
			Hash:        snap.Hash,
			HasErrors:   snap.HasErrors,
			HasWarnings: snap.HasWarnings,
		})
	}
	return p.Analyze(ctx, snap)
}

// metafileOptions derives adapter options from the build options
func metafileOptions(opts *api.BuildOptions) graph.MetafileOptions {
	workDir := opts.AbsWorkingDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	outDir := opts.Outdir
	if outDir == "" && opts.Outfile != "" {
		outDir = filepath.Dir(opts.Outfile)
	}

	return graph.MetafileOptions{
		WorkingDir: workDir,
		OutDir:     outDir,
		Aliases:    opts.Alias,
	}
}

// outputHash combines the esbuild output hashes, or returns "" when the
// build kept no output files in memory
func outputHash(files []api.OutputFile) string {
	if len(files) == 0 {
		return ""
	}

	sorted := make([]api.OutputFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	d := xxhash.New()
	for _, f := range sorted {
		_, _ = d.WriteString(f.Path)
		_, _ = d.WriteString(f.Hash)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
