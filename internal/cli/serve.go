package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pampa-labs/inflationd/internal/api"
	"github.com/pampa-labs/inflationd/internal/query"
	"github.com/pampa-labs/inflationd/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
	Origins  []string
	NoBoot   bool
	Sources  SourceOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inflation API server",
		Long: `Start the HTTP API over the CPI series store.

Unless --no-boot-refresh is given, one reconciliation cycle runs before
the server starts listening; an unreachable upstream only logs a warning
and the server falls back to whatever the store already holds.

Example:
  inflationd serve --db ./inflation.db --addr :8002
  inflationd serve --db ./inflation.db --history cpi_historical.csv --overrides overrides.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	addSourceFlags(cmd, &opts.Sources)
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8002", "listen address")
	cmd.Flags().StringSliceVar(&opts.Origins, "origin", nil, "allowed CORS origin (repeatable, * for any)")
	cmd.Flags().BoolVar(&opts.NoBoot, "no-boot-refresh", false, "skip the reconciliation cycle at startup")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	driver, err := buildDriver(st, &opts.Sources)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure sources", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if !opts.NoBoot {
		slog.Info("running startup reconciliation cycle")
		if result, err := driver.Refresh(ctx); err != nil {
			// Serving stale data beats not serving at all.
			slog.Warn("startup refresh failed, serving stored data", "error", err)
		} else {
			slog.Info("startup refresh done", "state", result.State, "records_written", result.RecordsWritten)
		}
	}

	queries := query.New(st, slog.Default())
	server := api.NewServer(st, queries, driver,
		api.WithAllowedOrigins(opts.Origins),
		api.WithServerLogger(slog.Default()),
	)

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server listening", "addr", opts.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving inflation API on %s\n", opts.Addr)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
