package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/buildtrace/cli/output"
	"github.com/fluxbase-eu/buildtrace/cli/util"
	"github.com/fluxbase-eu/buildtrace/internal/buildstats"
)

var statsResetForce bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect the persisted build stats",
	Long:  `Show or reset the build stats snapshot used to detect asset size growth.`,
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last build stats snapshot",
	Long: `Print the snapshot written by the last build.

Examples:
  buildtrace stats show
  buildtrace stats show -o json`,
	PreRunE: loadConfig,
	RunE:    runStatsShow,
}

var statsResetCmd = &cobra.Command{
	Use:     "reset",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete the build stats snapshot",
	Long: `Delete the persisted snapshot. The next build starts again at build 0.

Examples:
  buildtrace stats reset --force`,
	PreRunE: loadConfig,
	RunE:    runStatsReset,
}

func init() {
	statsResetCmd.Flags().BoolVarP(&statsResetForce, "force", "f", false, "Skip confirmation")

	statsCmd.AddCommand(statsShowCmd)
	statsCmd.AddCommand(statsResetCmd)
}

func runStatsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	formatter := GetFormatter()

	snap, err := store.Read(cmd.Context())
	if errors.Is(err, buildstats.ErrNotFound) {
		formatter.PrintInfo(fmt.Sprintf("No build stats found at %s", store.Location()))
		return nil
	}
	if err != nil {
		return err
	}

	if formatter.Format != output.FormatTable {
		return formatter.Print(snap)
	}

	formatter.PrintTable(output.TableData{
		Headers: []string{"BUILD", "TOTAL SIZE", "ELAPSED", "ENVIRONMENT", "ERRORS", "WARNINGS", "HASH"},
		Rows: [][]string{{
			strconv.FormatUint(snap.BuildNumber, 10),
			fmt.Sprintf("%.2f KB", snap.TotalAssetSizeKiB),
			fmt.Sprintf("%.3fs", snap.ElapsedSeconds),
			snap.Environment,
			strconv.FormatBool(snap.HasErrors),
			strconv.FormatBool(snap.HasWarnings),
			snap.ContentHash,
		}},
	})
	return nil
}

func runStatsReset(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !statsResetForce {
		in := cmd.InOrStdin()
		if in == os.Stdin && !util.IsInteractive() {
			return errors.New("refusing to delete build stats without --force in a non-interactive session")
		}

		ok, err := util.Confirm(in, cmd.OutOrStdout(), fmt.Sprintf("Delete build stats at %s?", store.Location()), false)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
	}

	if err := store.Delete(cmd.Context()); err != nil {
		return err
	}

	GetFormatter().PrintSuccess(fmt.Sprintf("Build stats at %s deleted", store.Location()))
	return nil
}
