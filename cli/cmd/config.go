package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/buildtrace/cli/output"
	"github.com/fluxbase-eu/buildtrace/cli/util"
	"github.com/fluxbase-eu/buildtrace/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage buildtrace configuration",
	Long:  `Create and view the buildtrace.yaml configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Long: `Create a new configuration file with default settings. Every analyzer
starts inactive.

Examples:
  buildtrace config init
  buildtrace config init --config config/buildtrace.yaml`,
	RunE: runConfigInit,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display current configuration",
	Long: `Show the effective configuration after defaults, the config file and
BUILDTRACE_* environment variables are applied.

Examples:
  buildtrace config view
  buildtrace config view --output json`,
	PreRunE: loadConfig,
	RunE:    runConfigView,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(credentialsCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigPath()

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", configPath, err)
	}

	if err := config.Default().Save(configPath); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "Set 'active: true' on the analyzers you want, then run 'buildtrace build'.")
	return nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	view := maskCredentials(*GetConfig())

	formatter := GetFormatter()
	if formatter.Format != output.FormatTable {
		return formatter.Print(view)
	}

	// The table format has no tabular view of the config; show the YAML
	data, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// maskCredentials hides the stats store credentials
func maskCredentials(c config.Config) config.Config {
	stats := &c.BuildStats
	if stats.S3.AccessKey != "" {
		stats.S3.AccessKey = util.MaskToken(stats.S3.AccessKey)
	}
	if stats.S3.SecretKey != "" {
		stats.S3.SecretKey = "****"
	}
	stats.RedisURL = redactURL(stats.RedisURL)
	stats.PostgresDSN = redactURL(stats.PostgresDSN)
	return c
}

// redactURL masks the password of a URL. Values that are not URLs, such as
// key=value DSNs, are masked entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "****"
	}
	return u.Redacted()
}
