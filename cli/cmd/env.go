package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/buildtrace/internal/envcheck"
)

var (
	envRequired []string
	envFiles    []string
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Validate build environment variables",
	Long:  `Check the environment a build runs in.`,
}

var envCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every required environment variable is set",
	Long: `Run the env validator without building. Variables set in the process
environment win over values from the env files.

Exits non-zero when a required variable is missing or blank.

Examples:
  buildtrace env check
  buildtrace env check --require API_URL --require SENTRY_DSN
  buildtrace env check --env-file .env.production`,
	PreRunE: loadConfig,
	RunE:    runEnvCheck,
}

func init() {
	envCheckCmd.Flags().StringArrayVar(&envRequired, "require", nil, "Required variable (overrides env_validator.required)")
	envCheckCmd.Flags().StringArrayVar(&envFiles, "env-file", nil, "Env file to read (overrides env_validator.env_files)")

	envCmd.AddCommand(envCheckCmd)
}

func runEnvCheck(cmd *cobra.Command, args []string) error {
	envCfg := cfg.EnvValidator
	if len(envRequired) > 0 {
		envCfg.Required = envRequired
	}
	if len(envFiles) > 0 {
		envCfg.EnvFiles = envFiles
	}
	if err := envCfg.Validate(); err != nil {
		return fmt.Errorf("invalid env_validator configuration: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	result, err := envcheck.Check(workDir, envCfg)
	if err != nil {
		return err
	}

	envcheck.Report(GetFormatter(), result)
	if !result.Valid() {
		// the report already names the variables
		cmd.SilenceErrors = true
		return fmt.Errorf("%d environment variables are not valid", len(result.Invalid))
	}
	return nil
}
