package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pampa-labs/inflationd/internal/query"
	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/store"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Database string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <amount> <from-date> <to-date>",
		Short: "Convert a price between two dates",
		Long: `Convert an amount from one date's prices to another's using the CPI
ratio between them. Dates are YYYY-MM-DD.

Example:
  inflationd convert 1000 2010-01-01 2024-06-01 --db ./inflation.db`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, cmd, args)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

func runConvert(opts *ConvertOptions, cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil || amount <= 0 {
		return WrapExitError(ExitCommandError, "amount must be a positive number", err)
	}
	from, err := time.Parse("2006-01-02", args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "from-date must be YYYY-MM-DD", err)
	}
	to, err := time.Parse("2006-01-02", args[2])
	if err != nil {
		return WrapExitError(ExitCommandError, "to-date must be YYYY-MM-DD", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	engine := query.New(st, slog.Default())
	conv, err := engine.Convert(cmd.Context(), amount, from, to)
	if err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		var se *series.Error
		if errors.As(err, &se) {
			_ = formatter.Error(string(se.Code), se.Error())
			return WrapExitError(ExitFailure, "conversion failed", err)
		}
		return WrapExitError(ExitFailure, "conversion failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"original_amount":   conv.OriginalAmount,
			"original_date":     conv.FromDate.Format("2006-01-02"),
			"target_date":       conv.ToDate.Format("2006-01-02"),
			"converted_amount":  conv.ConvertedAmount,
			"inflation_rate":    conv.Multiplier,
			"percentage_change": conv.PercentageChange,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%.2f at %s is %.2f at %s\n", conv.OriginalAmount, args[1], conv.ConvertedAmount, args[2])
	fmt.Fprintf(out, "Multiplier: %.4f (%.2f%% change)\n", conv.Multiplier, conv.PercentageChange)
	return nil
}
