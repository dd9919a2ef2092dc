package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/store"
)

// DataOptions holds flags for the data command.
type DataOptions struct {
	*RootOptions
	Database  string
	StartYear int
	EndYear   int
	Limit     int
}

// NewDataCommand creates the data command.
func NewDataCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DataOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Dump the stored CPI series",
		Long: `Print the stored monthly series as a table or JSON.

Example:
  inflationd data --db ./inflation.db --start-year 2020
  inflationd data --db ./inflation.db --format json --limit 24`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runData(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().IntVar(&opts.StartYear, "start-year", 1990, "first year to include")
	cmd.Flags().IntVar(&opts.EndYear, "end-year", 0, "last year to include (0 = no bound)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = all)")

	return cmd
}

func runData(opts *DataOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.ReadRange(cmd.Context(), opts.StartYear, opts.EndYear, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read records", err)
	}
	if len(records) == 0 {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		_ = formatter.Error(string(series.CodeNoData), "no inflation data in store")
		return WrapExitError(ExitFailure, "no inflation data in store", nil)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		rows := make([]map[string]any, len(records))
		for i, r := range records {
			rows[i] = map[string]any{
				"date":         r.Month.Date().Format("2006-01-02"),
				"cpi_index":    r.CPIIndex,
				"monthly_rate": r.MonthlyRate,
				"annual_rate":  r.AnnualRate,
				"source":       string(r.Source),
				"estimated":    r.Estimated,
			}
		}
		return formatter.Success(rows)
	}

	// Hyperinflation-era index values get large; print them with
	// thousands separators.
	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %14s %10s %10s  %s\n", "Date", "CPI Index", "Monthly%", "Annual%", "Source")
	for _, r := range records {
		p.Fprintf(out, "%-10s %14.2f %10.2f %10.2f  %s%s\n",
			r.Month.Date().Format("2006-01-02"),
			r.CPIIndex, r.MonthlyRate, r.AnnualRate,
			r.Source, estimatedMark(r))
	}
	fmt.Fprintf(out, "%d record(s)\n", len(records))
	return nil
}

func estimatedMark(r series.Record) string {
	if r.Estimated {
		return " (annual estimated)"
	}
	return ""
}
