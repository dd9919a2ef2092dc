package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pampa-labs/inflationd/internal/reconcile"
	"github.com/pampa-labs/inflationd/internal/source"
	"github.com/pampa-labs/inflationd/internal/store"
)

// DefaultFeedURL is the remote feed API root.
const DefaultFeedURL = "https://api.stlouisfed.org/fred"

// SourceOptions holds the flags shared by commands that run the
// reconciliation driver.
type SourceOptions struct {
	HistoryCSV    string
	FeedURL       string
	FeedSeries    string
	APIKey        string
	OverridesPath string
	StartYear     int
}

// addDatabaseFlag registers --db with an environment fallback.
func addDatabaseFlag(cmd *cobra.Command, database *string) {
	def := os.Getenv("INFLATIOND_DB")
	if def == "" {
		def = "inflation.db"
	}
	cmd.Flags().StringVar(database, "db", def, "path to SQLite database (env INFLATIOND_DB)")
}

// addSourceFlags registers the upstream source flags.
func addSourceFlags(cmd *cobra.Command, opts *SourceOptions) {
	cmd.Flags().StringVar(&opts.HistoryCSV, "history", "", "path to historical CPI CSV (optional)")
	cmd.Flags().StringVar(&opts.FeedURL, "feed-url", DefaultFeedURL, "remote feed API root")
	cmd.Flags().StringVar(&opts.FeedSeries, "feed-series", source.DefaultSeriesID, "remote feed series ID")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", os.Getenv("FRED_API_KEY"), "remote feed API key (env FRED_API_KEY)")
	cmd.Flags().StringVar(&opts.OverridesPath, "overrides", "", "path to manual override dataset YAML (optional)")
	cmd.Flags().IntVar(&opts.StartYear, "start-year", reconcile.DefaultStartYear, "first year of the managed span")
}

// buildDriver assembles the reconciliation driver from the source flags.
func buildDriver(st *store.Store, opts *SourceOptions) (*reconcile.Driver, error) {
	feed := source.NewFeedClient(opts.FeedURL, opts.APIKey, source.WithSeriesID(opts.FeedSeries))

	driverOpts := []reconcile.Option{
		reconcile.WithStartYear(opts.StartYear),
	}
	if opts.HistoryCSV != "" {
		driverOpts = append(driverOpts, reconcile.WithHistory(reconcile.CSVHistory{Path: opts.HistoryCSV}))
	}
	if opts.OverridesPath != "" {
		set, err := reconcile.LoadOverrides(opts.OverridesPath)
		if err != nil {
			return nil, err
		}
		driverOpts = append(driverOpts, reconcile.WithOverrides(set))
	}

	return reconcile.New(st, feed, driverOpts...), nil
}
