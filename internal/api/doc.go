// Package api exposes the CPI series over HTTP: historical data listing,
// the current-inflation summary, price conversion, range inflation,
// per-year annual rates, and the administrative refresh trigger.
//
// Responses are JSON. Failures map the shared error taxonomy onto status
// codes (NO_DATA to 404, MISSING_CPI_DATA and malformed input to 400,
// UPSTREAM_FETCH to 502) with a structured error payload; numeric fields
// are never partially populated.
package api
