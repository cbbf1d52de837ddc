package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/buildtrace/cli/bundler"
)

var (
	analyzeMetafile   string
	analyzeGraph      string
	analyzeWorkingDir string
	analyzeOutDir     string
	analyzeWatch      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analyzers over an existing build",
	Long: `Run the analyzers over an esbuild metafile or a module graph document
written by another bundler.

Metafile paths are resolved against --working-dir, which defaults to the
metafile's directory.

Examples:
  buildtrace analyze --metafile dist/meta.json
  buildtrace analyze --metafile meta.json --working-dir . --outdir dist
  buildtrace analyze --graph build/graph.json --watch
  buildtrace analyze --graph build/graph.json -o json`,
	PreRunE: loadConfig,
	RunE:    runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMetafile, "metafile", "", "esbuild metafile to analyze")
	analyzeCmd.Flags().StringVar(&analyzeGraph, "graph", "", "Module graph document to analyze")
	analyzeCmd.Flags().StringVar(&analyzeWorkingDir, "working-dir", "", "Directory the metafile paths are relative to")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "outdir", "", "Output directory trimmed from asset names (default build.outdir)")
	analyzeCmd.Flags().BoolVarP(&analyzeWatch, "watch", "w", false, "Re-run whenever the document changes")

	analyzeCmd.MarkFlagsMutuallyExclusive("metafile", "graph")
	analyzeCmd.MarkFlagsOneRequired("metafile", "graph")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := GetFormatter()

	sess, err := newSession(ctx, cfg, findingsSink(formatter))
	if err != nil {
		return err
	}
	defer closeSession(sess)

	outDir := analyzeOutDir
	if outDir == "" {
		outDir = cfg.Build.OutDir
	}

	analyzer, err := bundler.NewAnalyzer(sess.plugin, bundler.Source{
		Metafile:   analyzeMetafile,
		Graph:      analyzeGraph,
		WorkingDir: analyzeWorkingDir,
		OutDir:     outDir,
		Aliases:    cfg.Build.Alias,
	})
	if err != nil {
		return err
	}

	if analyzeWatch {
		return analyzer.Watch(ctx, func(err error) {
			formatter.PrintError(err.Error())
		})
	}
	return analyzer.Run(ctx)
}
