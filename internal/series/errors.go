package series

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode categorizes failures across the reconciliation and query layers.
type ErrorCode string

const (
	// CodeDataIntegrity indicates an invariant violation (e.g. non-positive
	// CPI index). Fatal for the operation: nothing is persisted.
	CodeDataIntegrity ErrorCode = "DATA_INTEGRITY"

	// CodeNoData indicates the store or every source is empty.
	CodeNoData ErrorCode = "NO_DATA"

	// CodeMissingCPI indicates a requested date could not be resolved to a
	// CPI value even with same-month and boundary fallbacks.
	CodeMissingCPI ErrorCode = "MISSING_CPI_DATA"

	// CodeUpstreamFetch indicates the remote source was unreachable or
	// returned a malformed payload. Recoverable: callers degrade to the
	// sources that succeeded.
	CodeUpstreamFetch ErrorCode = "UPSTREAM_FETCH"
)

// Error is the structured error type shared by the series, reconcile and
// query packages. Use the Is* predicates rather than matching codes by hand.
type Error struct {
	Code    ErrorCode
	Message string

	// Date names the offending date for MISSING_CPI_DATA errors.
	Date time.Time

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if !e.Date.IsZero() {
		return fmt.Sprintf("%s: %s (date=%s)", e.Code, e.Message, e.Date.Format("2006-01-02"))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDataIntegrity creates a DATA_INTEGRITY error.
func NewDataIntegrity(format string, args ...any) *Error {
	return &Error{Code: CodeDataIntegrity, Message: fmt.Sprintf(format, args...)}
}

// NewNoData creates a NO_DATA error.
func NewNoData(format string, args ...any) *Error {
	return &Error{Code: CodeNoData, Message: fmt.Sprintf(format, args...)}
}

// NewMissingCPI creates a MISSING_CPI_DATA error naming the unresolvable date.
func NewMissingCPI(date time.Time, format string, args ...any) *Error {
	return &Error{Code: CodeMissingCPI, Message: fmt.Sprintf(format, args...), Date: date}
}

// WrapUpstreamFetch wraps a transport or decode failure as UPSTREAM_FETCH.
func WrapUpstreamFetch(err error, format string, args ...any) *Error {
	return &Error{Code: CodeUpstreamFetch, Message: fmt.Sprintf(format, args...), Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsDataIntegrity reports whether err is a DATA_INTEGRITY error.
func IsDataIntegrity(err error) bool { return hasCode(err, CodeDataIntegrity) }

// IsNoData reports whether err is a NO_DATA error.
func IsNoData(err error) bool { return hasCode(err, CodeNoData) }

// IsMissingCPI reports whether err is a MISSING_CPI_DATA error.
func IsMissingCPI(err error) bool { return hasCode(err, CodeMissingCPI) }

// IsUpstreamFetch reports whether err is an UPSTREAM_FETCH error.
func IsUpstreamFetch(err error) bool { return hasCode(err, CodeUpstreamFetch) }
