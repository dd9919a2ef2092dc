package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pampa-labs/inflationd/internal/store"
)

// RefreshOptions holds flags for the refresh command.
type RefreshOptions struct {
	*RootOptions
	Database string
	Sources  SourceOptions
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RefreshOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one reconciliation cycle",
		Long: `Run one reconciliation cycle against the configured sources.

Loads the store from scratch when empty, extends it from the merged
sources when it lags, applies manual overrides for months the feed has
not published, and interpolates interior gaps.

Example:
  inflationd refresh --db ./inflation.db --history cpi_historical.csv
  inflationd refresh --db ./inflation.db --overrides overrides.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	addSourceFlags(cmd, &opts.Sources)

	return cmd
}

func runRefresh(opts *RefreshOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	driver, err := buildDriver(st, &opts.Sources)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure sources", err)
	}

	result, err := driver.Refresh(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "refresh failed", err)
	}
	slog.Debug("refresh finished", "cycle", result.CycleToken)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"cycle_token":     result.CycleToken,
			"state":           string(result.State),
			"initial_load":    result.InitialLoad,
			"records_written": result.RecordsWritten,
			"months_behind":   result.MonthsBehind,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cycle %s: %s\n", result.CycleToken, result.State)
	if result.InitialLoad {
		fmt.Fprintln(out, "Initial load from empty store")
	}
	fmt.Fprintf(out, "Records written: %d\n", result.RecordsWritten)
	if result.MonthsBehind > 0 {
		fmt.Fprintf(out, "Still %d month(s) behind; extend the override dataset to cover the lag\n", result.MonthsBehind)
	}
	return nil
}
