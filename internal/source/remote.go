package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

// DefaultSeriesID is the feed series carrying the country's CPI
// year-over-year growth rate with monthly observations.
const DefaultSeriesID = "ARGCPALTT01GYM"

// DefaultFeedTimeout bounds a single feed request. A timeout is an
// UPSTREAM_FETCH error, so callers fall back to stored data instead of
// failing the query path.
const DefaultFeedTimeout = 15 * time.Second

// FeedClient fetches year-over-year CPI growth rates from the remote feed.
// The zero value is not usable; use NewFeedClient.
type FeedClient struct {
	baseURL  string
	apiKey   string
	seriesID string
	client   *http.Client
}

// FeedOption configures a FeedClient.
type FeedOption func(*FeedClient)

// WithSeriesID overrides the feed series identifier.
func WithSeriesID(id string) FeedOption {
	return func(c *FeedClient) { c.seriesID = id }
}

// WithHTTPClient overrides the HTTP client, e.g. to shorten the timeout
// in tests.
func WithHTTPClient(hc *http.Client) FeedOption {
	return func(c *FeedClient) { c.client = hc }
}

// NewFeedClient creates a feed client for the given endpoint.
func NewFeedClient(baseURL, apiKey string, opts ...FeedOption) *FeedClient {
	c := &FeedClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		seriesID: DefaultSeriesID,
		client:   &http.Client{Timeout: DefaultFeedTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// feedResponse mirrors the feed's observations payload. Values arrive as
// strings; "." marks a missing observation.
type feedResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchAnnualRates returns the feed's year-over-year growth observations
// from the given month onward, sorted chronologically with missing
// observations dropped.
//
// Any transport, status or decode failure is an UPSTREAM_FETCH error.
func (c *FeedClient) FetchAnnualRates(ctx context.Context, from series.Month) ([]RateObservation, error) {
	u, err := url.Parse(c.baseURL + "/series/observations")
	if err != nil {
		return nil, series.WrapUpstreamFetch(err, "invalid feed URL %q", c.baseURL)
	}
	q := u.Query()
	q.Set("series_id", c.seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", from.Date().Format("2006-01-02"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, series.WrapUpstreamFetch(err, "build feed request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, series.WrapUpstreamFetch(err, "feed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, series.WrapUpstreamFetch(
			fmt.Errorf("status %d", resp.StatusCode), "feed returned non-OK status")
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, series.WrapUpstreamFetch(err, "decode feed payload")
	}

	rates := make([]RateObservation, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		if o.Value == "." || o.Value == "" {
			continue // missing observation
		}
		t, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, series.WrapUpstreamFetch(err, "feed observation has bad date %q", o.Date)
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, series.WrapUpstreamFetch(err, "feed observation has bad value %q", o.Value)
		}
		rates = append(rates, RateObservation{Month: series.MonthOf(t), AnnualRate: v})
	}

	sort.Slice(rates, func(i, j int) bool {
		return rates[i].Month.Before(rates[j].Month)
	})

	return rates, nil
}
