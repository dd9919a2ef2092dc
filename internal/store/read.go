package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

const recordColumns = `date, year, month, cpi_index, monthly_rate, annual_rate, source, estimated, updated_at`

// ReadAll returns every monthly record ordered by date ascending.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ReadAll(ctx context.Context) ([]series.Record, error) {
	return s.readRecords(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records
		ORDER BY date ASC
	`)
}

// ReadRange returns records with year in [startYear, endYear], ordered by
// date ascending. endYear <= 0 means no upper bound. limit <= 0 means no
// limit.
func (s *Store) ReadRange(ctx context.Context, startYear, endYear, limit int) ([]series.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM monthly_records
		WHERE year >= ?
	`
	args := []any{startYear}
	if endYear > 0 {
		query += ` AND year <= ?`
		args = append(args, endYear)
	}
	query += ` ORDER BY date ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.readRecords(ctx, query, args...)
}

// ReadSince returns records dated on or after the given day, ordered ascending.
func (s *Store) ReadSince(ctx context.Context, day time.Time) ([]series.Record, error) {
	return s.readRecords(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records
		WHERE date >= ?
		ORDER BY date ASC
	`, day.UTC().Format("2006-01-02"))
}

// ReadMonth returns the record for a calendar month.
// The second return value is false when no record exists.
func (s *Store) ReadMonth(ctx context.Context, m series.Month) (series.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records
		WHERE year = ? AND month = ?
	`, m.Year, int(m.Month))

	rec, err := scanRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return series.Record{}, false, nil
	}
	if err != nil {
		return series.Record{}, false, err
	}
	return rec, true, nil
}

// Latest returns the most recent record.
// The second return value is false when the store is empty.
func (s *Store) Latest(ctx context.Context) (series.Record, bool, error) {
	return s.readOne(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records
		ORDER BY date DESC
		LIMIT 1
	`)
}

// Earliest returns the oldest record.
// The second return value is false when the store is empty.
func (s *Store) Earliest(ctx context.Context) (series.Record, bool, error) {
	return s.readOne(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records
		ORDER BY date ASC
		LIMIT 1
	`)
}

// RefreshCycle is one row of the refresh log.
type RefreshCycle struct {
	CycleToken     string
	StartedAt      time.Time
	FinishedAt     time.Time // zero when the cycle is still running
	Outcome        string
	RecordsWritten int
}

// LastRefreshCycles returns the most recent refresh log rows, newest first.
func (s *Store) LastRefreshCycles(ctx context.Context, limit int) ([]RefreshCycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_token, started_at, finished_at, outcome, records_written
		FROM refresh_log
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query refresh log: %w", err)
	}
	defer rows.Close()

	cycles := []RefreshCycle{}
	for rows.Next() {
		var c RefreshCycle
		var started string
		var finished sql.NullString
		if err := rows.Scan(&c.CycleToken, &started, &finished, &c.Outcome, &c.RecordsWritten); err != nil {
			return nil, fmt.Errorf("scan refresh cycle: %w", err)
		}
		if c.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse refresh started_at %q: %w", started, err)
		}
		if finished.Valid {
			if c.FinishedAt, err = time.Parse(time.RFC3339, finished.String); err != nil {
				return nil, fmt.Errorf("parse refresh finished_at %q: %w", finished.String, err)
			}
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh log: %w", err)
	}
	return cycles, nil
}

func (s *Store) readOne(ctx context.Context, query string, args ...any) (series.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return series.Record{}, false, nil
	}
	if err != nil {
		return series.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) readRecords(ctx context.Context, query string, args ...any) ([]series.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []series.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInto(sc rowScanner) (series.Record, error) {
	var (
		rec       series.Record
		dateStr   string
		year      int
		month     int
		source    string
		estimated int
		updated   string
	)
	err := sc.Scan(&dateStr, &year, &month, &rec.CPIIndex, &rec.MonthlyRate, &rec.AnnualRate, &source, &estimated, &updated)
	if err != nil {
		return series.Record{}, err
	}

	rec.Month = series.Month{Year: year, Month: time.Month(month)}
	rec.Source = series.Source(source)
	rec.Estimated = estimated != 0
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return series.Record{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	return rec, nil
}

func scanRecord(rows *sql.Rows) (series.Record, error) {
	rec, err := scanInto(rows)
	if err != nil {
		return series.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

func scanRecordRow(row *sql.Row) (series.Record, error) {
	rec, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return series.Record{}, err
	}
	if err != nil {
		return series.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}
