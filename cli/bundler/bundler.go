// Package bundler drives esbuild builds and metafile analyses for the CLI.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/config"
)

// ErrNoEntryPoints is returned when neither the command line nor the
// configuration names an entry point
var ErrNoEntryPoints = errors.New("no entry points given")

// remoteImportFilter matches imports resolved at runtime rather than bundled
const remoteImportFilter = `^(npm:|jsr:|node:|https?://)`

// Bundler runs esbuild with the configured options and plugins
type Bundler struct {
	cfg     config.BuildConfig
	workDir string
	plugins []api.Plugin
}

// BuildResult summarizes one esbuild run
type BuildResult struct {
	OutputFiles []string
	Errors      []string
	Warnings    []string
	Metafile    string
}

// NewBundler creates a bundler rooted at workDir
func NewBundler(cfg config.BuildConfig, workDir string, plugins ...api.Plugin) (*Bundler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build configuration: %w", err)
	}

	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	return &Bundler{
		cfg:     cfg,
		workDir: abs,
		plugins: plugins,
	}, nil
}

// Options returns the esbuild options for entryPoints. Configured entry
// points are used when entryPoints is empty.
func (b *Bundler) Options(entryPoints []string) (api.BuildOptions, error) {
	if len(entryPoints) == 0 {
		entryPoints = b.cfg.EntryPoints
	}
	if len(entryPoints) == 0 {
		return api.BuildOptions{}, ErrNoEntryPoints
	}

	opts := api.BuildOptions{
		EntryPoints:       entryPoints,
		Bundle:            b.cfg.Bundle,
		Write:             b.cfg.Write,
		Metafile:          true,
		Outdir:            b.cfg.OutDir,
		Format:            buildFormat(b.cfg.Format),
		Platform:          buildPlatform(b.cfg.Platform),
		Target:            api.ESNext,
		MinifyWhitespace:  b.cfg.Minify,
		MinifyIdentifiers: b.cfg.Minify,
		MinifySyntax:      b.cfg.Minify,
		External:          b.cfg.External,
		Alias:             b.cfg.Alias,
		AbsWorkingDir:     b.workDir,
		LogLevel:          api.LogLevelSilent,
		Plugins:           append([]api.Plugin{remoteExternalPlugin()}, b.plugins...),
	}
	if b.cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	return opts, nil
}

// Build runs a single esbuild build. Build errors are returned as one error
// after the plugins have seen the result.
func (b *Bundler) Build(ctx context.Context, entryPoints []string) (*BuildResult, error) {
	opts, err := b.Options(entryPoints)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Strs("entry_points", opts.EntryPoints).Str("work_dir", b.workDir).Msg("Starting esbuild build")
	result := toBuildResult(api.Build(opts))

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("build failed: %s", strings.Join(result.Errors, "; "))
	}
	return result, nil
}

// Watch rebuilds on every source change until ctx is done. The plugins
// see every rebuild.
func (b *Bundler) Watch(ctx context.Context, entryPoints []string) error {
	opts, err := b.Options(entryPoints)
	if err != nil {
		return err
	}

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return fmt.Errorf("failed to create build context: %s", joinMessages(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}
	log.Info().Strs("entry_points", opts.EntryPoints).Msg("Watching for changes")

	<-ctx.Done()
	log.Debug().Msg("Stopping watch mode")
	return nil
}

// remoteExternalPlugin marks runtime-resolved imports as external
func remoteExternalPlugin() api.Plugin {
	return api.Plugin{
		Name: "remote-external",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: remoteImportFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})
		},
	}
}

func buildFormat(format string) api.Format {
	switch format {
	case "cjs":
		return api.FormatCommonJS
	case "iife":
		return api.FormatIIFE
	default:
		return api.FormatESModule
	}
}

func buildPlatform(platform string) api.Platform {
	switch platform {
	case "node":
		return api.PlatformNode
	case "neutral":
		return api.PlatformNeutral
	default:
		return api.PlatformBrowser
	}
}

func toBuildResult(result api.BuildResult) *BuildResult {
	out := &BuildResult{
		Errors:   formatMessages(result.Errors),
		Warnings: formatMessages(result.Warnings),
		Metafile: result.Metafile,
	}
	for _, f := range result.OutputFiles {
		out.OutputFiles = append(out.OutputFiles, f.Path)
	}
	return out
}

// formatMessages renders esbuild messages as "file:line: text"
func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location == nil {
			out = append(out, msg.Text)
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d: %s", msg.Location.File, msg.Location.Line, msg.Text))
	}
	return out
}

func joinMessages(msgs []api.Message) string {
	return strings.Join(formatMessages(msgs), "; ")
}
