package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

const dateLayout = "2006-01-02"

// unlimitedThreshold mirrors the long-standing data endpoint behavior:
// a limit at or above this value means "all records".
const unlimitedThreshold = 1000

// recordResponse is one month of inflation data on the wire.
type recordResponse struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Date        string  `json:"date"`
	MonthlyRate float64 `json:"monthly_rate"`
	AnnualRate  float64 `json:"annual_rate"`
	CPIIndex    float64 `json:"cpi_index"`
	Source      string  `json:"source"`
	Estimated   bool    `json:"estimated,omitempty"`
}

func toRecordResponse(r series.Record) recordResponse {
	return recordResponse{
		Year:        r.Month.Year,
		Month:       int(r.Month.Month),
		Date:        r.Month.Date().Format(dateLayout),
		MonthlyRate: r.MonthlyRate,
		AnnualRate:  r.AnnualRate,
		CPIIndex:    r.CPIIndex,
		Source:      string(r.Source),
		Estimated:   r.Estimated,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "inflationd",
		"description": "Track inflation rates and convert prices across time periods",
		"endpoints": map[string]string{
			"/inflation/data":    "Get historical inflation data",
			"/inflation/current": "Get current inflation statistics",
			"/inflation/convert": "Convert prices between dates",
			"/inflation/range":   "Get inflation for a date range",
			"/inflation/annual":  "Get annual inflation rates",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	body := map[string]any{"status": "ok", "records": count}
	if latest, ok, err := s.store.Latest(r.Context()); err == nil && ok {
		body["latest_date"] = latest.Month.Date().Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	startYear, err := intParam(r, "start_year", 1990)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	endYear, err := intParam(r, "end_year", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, err := intParam(r, "limit", unlimitedThreshold)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if limit >= unlimitedThreshold {
		limit = 0
	}

	records, err := s.store.ReadRange(r.Context(), startYear, endYear, limit)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	if len(records) == 0 {
		writeTaxonomyError(w, series.NewNoData("no inflation data found"))
		return
	}

	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = toRecordResponse(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	summary, err := s.queries.Summarize(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current_monthly":             summary.CurrentMonthly,
		"current_annual":              summary.CurrentAnnual,
		"current_annual_is_estimate":  summary.AnnualIsEstimate,
		"avg_last_12_months":          summary.AvgLast12Months,
		"total_inflation_since_start": summary.TotalSinceStart,
		"last_updated":                summary.LastUpdated.Date().Format(dateLayout),
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		badRequest(w, "amount must be a number")
		return
	}
	if amount <= 0 {
		badRequest(w, "amount must be positive")
		return
	}

	from, err := dateParam(r, "from_date")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := dateParam(r, "to_date")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	conv, err := s.queries.Convert(r.Context(), amount, from, to)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"original_amount":   conv.OriginalAmount,
		"original_date":     conv.FromDate.Format(dateLayout),
		"target_date":       conv.ToDate.Format(dateLayout),
		"converted_amount":  conv.ConvertedAmount,
		"inflation_rate":    conv.Multiplier,
		"percentage_change": conv.PercentageChange,
	})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start, err := dateParam(r, "start_date")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	end, err := dateParam(r, "end_date")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rng, err := s.queries.Range(r.Context(), start, end)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start_date":              rng.StartDate.Format(dateLayout),
		"end_date":                rng.EndDate.Format(dateLayout),
		"total_inflation_percent": rng.TotalInflation,
		"multiplier":              rng.Multiplier,
		"years":                   rng.Years,
	})
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	startYear, err := intParam(r, "start_year", 1995)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	endYear, err := intParam(r, "end_year", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rates, err := s.queries.AnnualByYear(r.Context(), startYear, endYear)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	data := make([]map[string]any, len(rates))
	for i, ar := range rates {
		entry := map[string]any{
			"year":        ar.Year,
			"rate":        ar.Rate,
			"as_of_month": ar.AsOfMonth.String(),
		}
		if ar.Estimated {
			entry["estimated"] = true
		}
		data[i] = entry
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start_year": startYear,
		"end_year":   endYear,
		"data":       data,
	})
}

func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	if s.driver == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_DRIVER", "refresh is not configured")
		return
	}

	result, err := s.driver.TryRefresh(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"cycle_token":     result.CycleToken,
		"state":           string(result.State),
		"initial_load":    result.InitialLoad,
		"records_written": result.RecordsWritten,
		"months_behind":   result.MonthsBehind,
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, reason: "must be an integer"}
	}
	return v, nil
}

func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, &paramError{name: name, reason: "is required (YYYY-MM-DD)"}
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, &paramError{name: name, reason: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return e.name + " " + e.reason
}
