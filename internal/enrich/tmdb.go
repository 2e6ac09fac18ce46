// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package enrich fetches movie metadata from the TMDb search API and
// writes it into the document store and the movies table. Requests are
// rate limited and guarded by a circuit breaker so a TMDb outage cannot
// stall an enrichment run indefinitely.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/metrics"
)

// ErrNoResults is returned when a TMDb search matches nothing.
var ErrNoResults = errors.New("enrich: no search results")

// ErrCircuitOpen is returned when the circuit breaker rejects a request.
var ErrCircuitOpen = errors.New("enrich: circuit breaker open")

// SearchResult is one movie in a TMDb search response.
type SearchResult struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
}

type searchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// Client is a rate-limited TMDb API client. TMDb enforces roughly 50
// requests per second; the default configuration stays far below that so
// a full MovieLens enrichment run is a good API citizen.
type Client struct {
	cfg     config.TMDBConfig
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*SearchResult]
}

// NewClient creates a TMDb client from configuration.
func NewClient(cfg config.TMDBConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 4
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*SearchResult](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		// A search that matches nothing is a valid answer, not a TMDb failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoResults)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: cb,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// yearSuffix matches a trailing release year like " (1995)" in MovieLens
// titles, which TMDb search does not understand.
var yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// CleanTitle strips the trailing "(YYYY)" year marker from a MovieLens
// title so it can be used as a TMDb search query.
func CleanTitle(title string) string {
	return strings.TrimSpace(yearSuffix.ReplaceAllString(title, ""))
}

// SearchMovie queries the TMDb search endpoint for the given title and
// returns the best match (TMDb orders results by relevance).
func (c *Client) SearchMovie(ctx context.Context, title string) (*SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (*SearchResult, error) {
		return c.search(ctx, title)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.TMDbRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrCircuitOpen
	}
	if errors.Is(err, ErrNoResults) {
		metrics.TMDbRequestsTotal.WithLabelValues("no_results").Inc()
		return nil, err
	}
	if err != nil {
		metrics.TMDbRequestsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.TMDbRequestsTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) search(ctx context.Context, title string) (*SearchResult, error) {
	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("query", title)
	q.Set("language", c.cfg.Language)
	q.Set("include_adult", strconv.FormatBool(c.cfg.IncludeAdult))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/search/movie?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb search: status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	if len(sr.Results) == 0 {
		return nil, ErrNoResults
	}
	return &sr.Results[0], nil
}
