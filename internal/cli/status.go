package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pampa-labs/inflationd/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
	Cycles   int
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show store coverage and recent refresh cycles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 5, "number of recent refresh cycles to show")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	count, err := st.Count(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read store", err)
	}

	if opts.Format == "json" {
		return statusJSON(opts, cmd, st, count)
	}

	out := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)
	p.Fprintf(out, "Records: %d\n", count)

	if count > 0 {
		earliest, _, err := st.Earliest(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read store", err)
		}
		latest, _, err := st.Latest(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read store", err)
		}
		fmt.Fprintf(out, "Coverage: %s to %s\n", earliest.Month, latest.Month)
		p.Fprintf(out, "Latest CPI: %.2f (monthly %.2f%%, annual %.2f%%)\n",
			latest.CPIIndex, latest.MonthlyRate, latest.AnnualRate)
	}

	cycles, err := st.LastRefreshCycles(ctx, opts.Cycles)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read refresh log", err)
	}
	if len(cycles) > 0 {
		fmt.Fprintln(out, "\nRecent refresh cycles:")
		for _, c := range cycles {
			fmt.Fprintf(out, "  %s  %-11s %4d written  %s\n",
				c.StartedAt.Format("2006-01-02 15:04:05"), c.Outcome, c.RecordsWritten, c.CycleToken)
		}
	}
	return nil
}

func statusJSON(opts *StatusOptions, cmd *cobra.Command, st *store.Store, count int) error {
	ctx := cmd.Context()
	body := map[string]any{"records": count}

	if count > 0 {
		earliest, _, err := st.Earliest(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read store", err)
		}
		latest, _, err := st.Latest(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read store", err)
		}
		body["earliest"] = earliest.Month.Date().Format("2006-01-02")
		body["latest"] = latest.Month.Date().Format("2006-01-02")
		body["latest_cpi"] = latest.CPIIndex
	}

	cycles, err := st.LastRefreshCycles(ctx, opts.Cycles)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read refresh log", err)
	}
	cycleRows := make([]map[string]any, len(cycles))
	for i, c := range cycles {
		cycleRows[i] = map[string]any{
			"cycle_token":     c.CycleToken,
			"started_at":      c.StartedAt,
			"outcome":         c.Outcome,
			"records_written": c.RecordsWritten,
		}
	}
	body["refresh_cycles"] = cycleRows

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(body)
}
