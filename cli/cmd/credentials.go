package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cliconfig "github.com/fluxbase-eu/buildtrace/cli/config"
	"github.com/fluxbase-eu/buildtrace/cli/util"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stats store credentials in the system keychain",
	Long: `Keep the S3, Redis and Postgres secrets of the build stats store in the
system keychain instead of buildtrace.yaml. Credentials are stored per
build_stats.project_key; values in the config file or environment win.

Available keys:
  s3_access_key, s3_secret_key, redis_url, postgres_dsn`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store a credential",
	Long: `Store a credential in the keychain. The value is read from stdin.

Examples:
  buildtrace config credentials set s3_secret_key
  echo "$DSN" | buildtrace config credentials set postgres_dsn`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: cliconfig.Keys,
	PreRunE:   loadConfig,
	RunE:      runCredentialsSet,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"rm"},
	Short:   "Delete every stored credential of the project",
	PreRunE: loadConfig,
	RunE:    runCredentialsDelete,
}

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	project := cfg.BuildStats.ProjectKey

	keychain := cliconfig.NewKeychainStore()
	if !keychain.IsAvailable() {
		return errors.New("keychain is not available on this system")
	}

	creds, err := keychain.Load(project)
	if err != nil {
		return err
	}
	if creds == nil {
		creds = &cliconfig.Credentials{}
	}

	value, err := util.ReadLine(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s: ", key))
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	if value == "" {
		return fmt.Errorf("empty value for %s", key)
	}

	if err := creds.Set(key, value); err != nil {
		return err
	}
	if err := keychain.Save(project, creds); err != nil {
		return err
	}

	GetFormatter().PrintSuccess(fmt.Sprintf("Stored %s for project %s", key, project))
	return nil
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	project := cfg.BuildStats.ProjectKey
	if err := cliconfig.NewKeychainStore().Delete(project); err != nil {
		return err
	}
	GetFormatter().PrintSuccess(fmt.Sprintf("Deleted credentials for project %s", project))
	return nil
}
