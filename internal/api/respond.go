package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pampa-labs/inflationd/internal/reconcile"
	"github.com/pampa-labs/inflationd/internal/series"
)

// errorBody is the structured error payload.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeTaxonomyError maps the shared error taxonomy onto HTTP statuses.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	var se *series.Error
	if errors.As(err, &se) {
		switch se.Code {
		case series.CodeNoData:
			writeError(w, http.StatusNotFound, string(se.Code), se.Error())
			return
		case series.CodeMissingCPI:
			writeError(w, http.StatusBadRequest, string(se.Code), se.Error())
			return
		case series.CodeUpstreamFetch:
			writeError(w, http.StatusBadGateway, string(se.Code), se.Error())
			return
		}
	}
	if errors.Is(err, reconcile.ErrRefreshInProgress) {
		writeError(w, http.StatusConflict, "REFRESH_IN_PROGRESS", err.Error())
		return
	}
	slog.Error("internal error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", message)
}
