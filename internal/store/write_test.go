package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords(start series.Month, cpis ...float64) []series.Record {
	records := make([]series.Record, len(cpis))
	for i, cpi := range cpis {
		records[i] = series.Record{
			Month:    start.Add(i),
			CPIIndex: cpi,
			Source:   series.SourceHistoricalCSV,
		}
	}
	if err := series.Recompute(records); err != nil {
		panic(err)
	}
	return records
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestUpsertBatch_Basic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := testRecords(series.Month{Year: 2024, Month: time.January}, 100, 102, 104)
	if err := s.UpsertBatch(ctx, records, testNow); err != nil {
		t.Fatalf("UpsertBatch() failed: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestUpsertBatch_LastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	feb := series.Month{Year: 2024, Month: time.February}
	if err := s.UpsertBatch(ctx, testRecords(feb, 100), testNow); err != nil {
		t.Fatalf("first UpsertBatch() failed: %v", err)
	}

	later := testNow.Add(time.Hour)
	update := []series.Record{{
		Month:    feb,
		CPIIndex: 105,
		Source:   series.SourceManualOverride,
	}}
	if err := s.UpsertBatch(ctx, update, later); err != nil {
		t.Fatalf("second UpsertBatch() failed: %v", err)
	}

	rec, found, err := s.ReadMonth(ctx, feb)
	if err != nil {
		t.Fatalf("ReadMonth() failed: %v", err)
	}
	if !found {
		t.Fatal("record not found after upsert")
	}
	if rec.CPIIndex != 105 {
		t.Errorf("CPIIndex = %v, want 105", rec.CPIIndex)
	}
	if rec.Source != series.SourceManualOverride {
		t.Errorf("Source = %q, want %q", rec.Source, series.SourceManualOverride)
	}
	if !rec.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, later)
	}

	// Still one row for the month
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestUpsertBatch_RejectsNonPositiveIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []series.Record{
		{Month: series.Month{Year: 2024, Month: time.January}, CPIIndex: 100},
		{Month: series.Month{Year: 2024, Month: time.February}, CPIIndex: 0},
	}

	err := s.UpsertBatch(ctx, records, testNow)
	if err == nil {
		t.Fatal("expected error for non-positive index, got nil")
	}
	if !series.IsDataIntegrity(err) {
		t.Errorf("expected DATA_INTEGRITY error, got %v", err)
	}

	// Nothing from the batch was persisted
	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("Count() = %d after rejected batch, want 0", n)
	}
}

func TestUpsertBatch_Empty(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertBatch(context.Background(), nil, testNow); err != nil {
		t.Errorf("UpsertBatch(nil) failed: %v", err)
	}
}

func TestRefreshCycle_BeginAndFinish(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	token := "0190a3f0-0000-7000-8000-000000000001"
	if err := s.BeginRefreshCycle(ctx, token, testNow); err != nil {
		t.Fatalf("BeginRefreshCycle() failed: %v", err)
	}

	cycles, err := s.LastRefreshCycles(ctx, 10)
	if err != nil {
		t.Fatalf("LastRefreshCycles() failed: %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(cycles))
	}
	if cycles[0].Outcome != "running" {
		t.Errorf("Outcome = %q before finish, want %q", cycles[0].Outcome, "running")
	}
	if !cycles[0].FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v before finish, want zero", cycles[0].FinishedAt)
	}

	finished := testNow.Add(2 * time.Second)
	if err := s.FinishRefreshCycle(ctx, token, "UP_TO_DATE", 42, finished); err != nil {
		t.Fatalf("FinishRefreshCycle() failed: %v", err)
	}

	cycles, err = s.LastRefreshCycles(ctx, 10)
	if err != nil {
		t.Fatalf("LastRefreshCycles() failed: %v", err)
	}
	if cycles[0].Outcome != "UP_TO_DATE" {
		t.Errorf("Outcome = %q, want UP_TO_DATE", cycles[0].Outcome)
	}
	if cycles[0].RecordsWritten != 42 {
		t.Errorf("RecordsWritten = %d, want 42", cycles[0].RecordsWritten)
	}
	if !cycles[0].FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", cycles[0].FinishedAt, finished)
	}
}

func TestBeginRefreshCycle_DuplicateToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	token := "0190a3f0-0000-7000-8000-000000000002"
	if err := s.BeginRefreshCycle(ctx, token, testNow); err != nil {
		t.Fatalf("first BeginRefreshCycle() failed: %v", err)
	}
	if err := s.BeginRefreshCycle(ctx, token, testNow); err == nil {
		t.Error("expected error for duplicate cycle token, got nil")
	}
}
