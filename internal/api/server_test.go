package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pampa-labs/inflationd/internal/query"
	"github.com/pampa-labs/inflationd/internal/reconcile"
	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/testutil"
)

type fakeRefresher struct {
	result reconcile.Result
	err    error
}

func (f fakeRefresher) TryRefresh(ctx context.Context) (reconcile.Result, error) {
	return f.result, f.err
}

func newTestHandler(t *testing.T, driver Refresher, opts []ServerOption, records ...series.Record) http.Handler {
	t.Helper()
	st := testutil.OpenStore(t, records...)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	queries := query.New(st, log)
	opts = append(opts, WithServerLogger(log))
	return NewServer(st, queries, driver, opts...).Handler()
}

func monthlyRecords(t *testing.T, cpis ...float64) []series.Record {
	t.Helper()
	return testutil.Records(series.Month{Year: 2024, Month: time.January}, series.SourceLiveFeed, cpis...)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestIndex_Golden(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "index", rec.Body.Bytes())
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 102, 104)...)

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["records"])
	assert.Equal(t, "2024-03-01", body["latest_date"])
}

func TestData(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 102, 104)...)

	rec := get(t, h, "/inflation/data")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, 2024, rows[0].Year)
	assert.Equal(t, 1, rows[0].Month)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, 100.0, rows[0].CPIIndex)
	assert.Equal(t, "live-feed", rows[0].Source)
	assert.InDelta(t, 2.0, rows[1].MonthlyRate, 1e-9)
}

func TestData_Limit(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 102, 104)...)

	rec := get(t, h, "/inflation/data?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	// A huge limit means no limit.
	rec = get(t, h, "/inflation/data?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 3)
}

func TestData_StartYearFilter(t *testing.T) {
	records := append(
		testutil.Records(series.Month{Year: 1980, Month: time.June}, series.SourceHistoricalCSV, 10, 11),
		monthlyRecords(t, 100, 102)...,
	)
	h := newTestHandler(t, nil, nil, records...)

	// Default start_year 1990 hides the older records.
	rec := get(t, h, "/inflation/data")
	var rows []recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	rec = get(t, h, "/inflation/data?start_year=1980")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 4)
}

func TestData_Empty(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := get(t, h, "/inflation/data")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_DATA", errorCode(t, rec))
}

func TestData_BadParam(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100)...)

	rec := get(t, h, "/inflation/data?start_year=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
}

func TestCurrent(t *testing.T) {
	cpis := make([]float64, 13)
	for i := range cpis {
		cpis[i] = 100 + float64(i)
	}
	h := newTestHandler(t, nil, nil, monthlyRecords(t, cpis...)...)

	rec := get(t, h, "/inflation/current")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "2025-01-01", body["last_updated"])
	assert.InDelta(t, (112.0/111.0-1)*100, body["current_monthly"].(float64), 1e-9)
	assert.InDelta(t, 12.0, body["current_annual"].(float64), 1e-9)
	assert.Equal(t, false, body["current_annual_is_estimate"])
	assert.Equal(t, 12.0, body["total_inflation_since_start"])
}

func TestCurrent_Empty(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := get(t, h, "/inflation/current")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_DATA", errorCode(t, rec))
}

func TestConvert(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 120, 150)...)

	rec := get(t, h, "/inflation/convert?amount=1000&from_date=2024-01-15&to_date=2024-03-15")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 1000.0, body["original_amount"])
	assert.Equal(t, "2024-01-15", body["original_date"])
	assert.Equal(t, "2024-03-15", body["target_date"])
	assert.Equal(t, 1500.0, body["converted_amount"])
	assert.Equal(t, 1.5, body["inflation_rate"])
	assert.Equal(t, 50.0, body["percentage_change"])
}

func TestConvert_Validation(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 120)...)

	tests := []struct {
		name string
		path string
	}{
		{"missing amount", "/inflation/convert?from_date=2024-01-01&to_date=2024-02-01"},
		{"non-numeric amount", "/inflation/convert?amount=abc&from_date=2024-01-01&to_date=2024-02-01"},
		{"zero amount", "/inflation/convert?amount=0&from_date=2024-01-01&to_date=2024-02-01"},
		{"negative amount", "/inflation/convert?amount=-5&from_date=2024-01-01&to_date=2024-02-01"},
		{"missing from_date", "/inflation/convert?amount=100&to_date=2024-02-01"},
		{"bad to_date", "/inflation/convert?amount=100&from_date=2024-01-01&to_date=February"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
		})
	}
}

func TestConvert_InteriorGap(t *testing.T) {
	records := append(
		monthlyRecords(t, 100),
		testutil.Records(series.Month{Year: 2024, Month: time.May}, series.SourceLiveFeed, 120)...,
	)
	h := newTestHandler(t, nil, nil, records...)

	rec := get(t, h, "/inflation/convert?amount=100&from_date=2024-03-01&to_date=2024-05-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_CPI_DATA", errorCode(t, rec))
}

func TestRange(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100, 110, 125)...)

	rec := get(t, h, "/inflation/range?start_date=2024-01-01&end_date=2024-03-01")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 25.0, body["total_inflation_percent"])
	assert.Equal(t, 1.25, body["multiplier"])
}

func TestAnnual(t *testing.T) {
	cpis := make([]float64, 13)
	for i := range cpis {
		cpis[i] = 100 + float64(i)
	}
	h := newTestHandler(t, nil, nil, monthlyRecords(t, cpis...)...)

	rec := get(t, h, "/inflation/annual?start_year=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].([]any)
	require.Len(t, data, 2)

	first := data[0].(map[string]any)
	assert.Equal(t, float64(2024), first["year"])
	assert.Equal(t, "2024-12", first["as_of_month"])
}

func TestUpdateData(t *testing.T) {
	driver := fakeRefresher{result: reconcile.Result{
		CycleToken:     "tok-1",
		State:          reconcile.StateUpToDate,
		RecordsWritten: 7,
	}}
	h := newTestHandler(t, driver, nil, monthlyRecords(t, 100)...)

	req := httptest.NewRequest(http.MethodPost, "/admin/update-data", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "tok-1", body["cycle_token"])
	assert.Equal(t, "UP_TO_DATE", body["state"])
	assert.Equal(t, float64(7), body["records_written"])
}

func TestUpdateData_Busy(t *testing.T) {
	driver := fakeRefresher{err: reconcile.ErrRefreshInProgress}
	h := newTestHandler(t, driver, nil, monthlyRecords(t, 100)...)

	req := httptest.NewRequest(http.MethodPost, "/admin/update-data", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REFRESH_IN_PROGRESS", errorCode(t, rec))
}

func TestUpdateData_NoDriver(t *testing.T) {
	h := newTestHandler(t, nil, nil, monthlyRecords(t, 100)...)

	req := httptest.NewRequest(http.MethodPost, "/admin/update-data", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_DRIVER", errorCode(t, rec))
}

func TestCORS(t *testing.T) {
	opts := []ServerOption{WithAllowedOrigins([]string{"https://app.example.com"})}
	h := newTestHandler(t, nil, opts, monthlyRecords(t, 100)...)

	// Allowed origin is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	opts := []ServerOption{WithAllowedOrigins([]string{"*"})}
	h := newTestHandler(t, nil, opts, monthlyRecords(t, 100)...)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	opts := []ServerOption{WithAllowedOrigins([]string{"*"})}
	h := newTestHandler(t, nil, opts)

	req := httptest.NewRequest(http.MethodOptions, "/inflation/data", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
