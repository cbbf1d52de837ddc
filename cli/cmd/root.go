// Package cmd provides the Cobra commands for the buildtrace CLI.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/buildtrace/cli/output"
	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile     string
	outputFmt   string
	noHeaders   bool
	quiet       bool
	debug       bool
	logFindings bool

	// Shared across commands
	cfg       *config.Config
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buildtrace",
	Short: "buildtrace - Build analysis for esbuild projects",
	Long: `buildtrace runs build analyzers over esbuild builds and module graphs.

Features:
  - Modules: Report large, unused and suspect modules
  - Assets: Classify emitted assets and their sizes
  - Stats: Track total asset size across builds
  - Env: Validate required environment variables

Get started:
  buildtrace config init     Write a buildtrace.yaml with every analyzer off
  buildtrace build src/index.ts
  buildtrace --help          Show available commands`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet

		if debug || viper.GetBool("debug") {
			debug = true
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./buildtrace.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")
	rootCmd.PersistentFlags().BoolVar(&logFindings, "log-findings", false,
		"also emit findings as structured log events (implied by --debug)")

	// Bind environment variables
	viper.SetEnvPrefix("BUILDTRACE")
	_ = viper.BindEnv("debug")        // BUILDTRACE_DEBUG
	_ = viper.BindEnv("log_findings") // BUILDTRACE_LOG_FINDINGS

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(envCmd)
}

// loadConfig loads the configuration and sets up the formatter for
// commands that need them
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if cfg.Debug && !debug {
		debug = true
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)

	return nil
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}

// findingsSink returns the sink analyzers report to: the formatter, plus
// structured log events when --log-findings or --debug is set
func findingsSink(f *output.Formatter) report.Sink {
	if !logFindings && !viper.GetBool("log_findings") && !debug {
		return f
	}
	return report.Multi{f, report.NewLogSink(log.Logger.With().Str("component", "findings").Logger())}
}

// GetConfig returns the loaded configuration (for use by subcommands)
func GetConfig() *config.Config {
	return cfg
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigName + ".yaml"
}

// IsDebug returns true if debug mode is enabled
func IsDebug() bool {
	return debug
}
