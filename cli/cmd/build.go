package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/buildtrace/cli/bundler"
)

var (
	buildOutDir string
	buildWatch  bool
)

var buildCmd = &cobra.Command{
	Use:   "build [entry...]",
	Short: "Build with esbuild and run the analyzers",
	Long: `Run an esbuild build with the buildtrace plugin attached.

Entry points default to build.entry_points from the configuration. The
analyzers enabled in the configuration run once the module graph is complete
and again once the assets are emitted.

Examples:
  buildtrace build src/index.ts
  buildtrace build src/index.ts --outdir public/js
  buildtrace build --watch`,
	PreRunE: loadConfig,
	RunE:    runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOutDir, "outdir", "", "Output directory (overrides build.outdir)")
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Rebuild on every source change")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := GetFormatter()

	sess, err := newSession(ctx, cfg, findingsSink(formatter))
	if err != nil {
		return err
	}
	defer closeSession(sess)

	buildCfg := cfg.Build
	if buildOutDir != "" {
		buildCfg.OutDir = buildOutDir
	}

	b, err := bundler.NewBundler(buildCfg, sess.workDir, sess.plugin.ESBuild())
	if err != nil {
		return err
	}

	if buildWatch {
		return b.Watch(ctx, args)
	}

	start := time.Now()
	result, err := b.Build(ctx, args)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		formatter.PrintWarning(w)
	}
	log.Debug().Int("outputs", len(result.OutputFiles)).Dur("took", time.Since(start)).Msg("Build finished")

	if !buildCfg.Write {
		formatter.PrintInfo(fmt.Sprintf("Built %d files (not written)", len(result.OutputFiles)))
		return nil
	}
	formatter.PrintSuccess(fmt.Sprintf("Built %d files into %s", len(result.OutputFiles), buildCfg.OutDir))
	return nil
}

// closeSession closes sess with a fresh context, since the command's may
// already be cancelled
func closeSession(sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess.Close(ctx)
}
