package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

// UpsertBatch writes a batch of monthly records in a single transaction.
// Last write wins: an existing record for the same month is overwritten and
// its updated_at bumped. The batch commits all-or-nothing; any failure rolls
// the whole batch back so rates are never persisted inconsistently with
// their index values.
//
// Records with a non-positive CPI index are rejected with DATA_INTEGRITY
// before anything is written.
func (s *Store) UpsertBatch(ctx context.Context, records []series.Record, now time.Time) error {
	if err := series.Validate(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO monthly_records
		(date, year, month, cpi_index, monthly_rate, annual_rate, source, estimated, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			cpi_index    = excluded.cpi_index,
			monthly_rate = excluded.monthly_rate,
			annual_rate  = excluded.annual_rate,
			source       = excluded.source,
			estimated    = excluded.estimated,
			updated_at   = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("upsert batch: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Month.Date().Format("2006-01-02"),
			r.Month.Year,
			int(r.Month.Month),
			r.CPIIndex,
			r.MonthlyRate,
			r.AnnualRate,
			string(r.Source),
			boolToInt(r.Estimated),
			now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("upsert batch: record %s: %w", r.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert batch: commit: %w", err)
	}

	return nil
}

// BeginRefreshCycle records the start of a reconciliation cycle.
// The cycle token must be unique; cycle tokens are UUIDv7 so they sort by time.
func (s *Store) BeginRefreshCycle(ctx context.Context, cycleToken string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_log (cycle_token, started_at)
		VALUES (?, ?)
	`, cycleToken, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("begin refresh cycle: %w", err)
	}
	return nil
}

// FinishRefreshCycle records the outcome of a reconciliation cycle.
func (s *Store) FinishRefreshCycle(ctx context.Context, cycleToken, outcome string, recordsWritten int, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE refresh_log
		SET finished_at = ?, outcome = ?, records_written = ?
		WHERE cycle_token = ?
	`, finishedAt.UTC().Format(time.RFC3339), outcome, recordsWritten, cycleToken)
	if err != nil {
		return fmt.Errorf("finish refresh cycle: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
