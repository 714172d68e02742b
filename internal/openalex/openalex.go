// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openalex fetches paper metadata from the OpenAlex Works API:
// keyword search for seeding the vector index and batched lookups by work
// ID for hydrating search hits. Requests are rate limited, retried on 429
// and 503, and guarded by a circuit breaker.
package openalex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-recommender/internal/httputil"
	"github.com/pdiddy/paper-recommender/internal/metrics"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// worksURL is the OpenAlex Works endpoint. Declared as a var so tests can
// substitute an httptest server.
var worksURL = "https://api.openalex.org/works"

const (
	breakerName = "openalex"
	maxPerPage  = 200
	maxBatch    = 50

	// lookupConcurrency bounds parallel batch lookups; the limiter still
	// caps the overall request rate.
	lookupConcurrency = 4
)

// ErrUnavailable reports that the circuit breaker is rejecting requests.
var ErrUnavailable = errors.New("openalex unavailable")

// Client queries OpenAlex.
type Client struct {
	http      *http.Client
	email     string
	userAgent string
	batchSize int
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]work]
	logger    *zap.Logger
}

// New returns a client configured from cfg. A nil logger discards logs.
func New(cfg types.MetadataConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > maxBatch {
		batch = maxBatch
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		email:     cfg.Email,
		userAgent: cfg.UserAgent,
		batchSize: batch,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]work](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return c
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Search runs a relevance-ranked keyword search. Each keyword is quoted and
// the phrases are OR-ed together. page is 1-based.
func (c *Client) Search(ctx context.Context, keywords []string, perPage, page int) ([]types.Paper, error) {
	text := searchText(keywords)
	if text == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	perPage = min(max(perPage, 1), maxPerPage)
	page = max(page, 1)

	params := url.Values{
		"search":   {text},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
		"select":   {selectFields},
	}
	works, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("searching OpenAlex: %w", err)
	}
	return toPapers(works), nil
}

func searchText(keywords []string) string {
	var parts []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ReplaceAll(kw, `"`, ""))
		if kw != "" {
			parts = append(parts, `"`+kw+`"`)
		}
	}
	return strings.Join(parts, " OR ")
}

// Works fetches metadata for OpenAlex work IDs ("W123" or full URLs).
// Lookups are batched with the openalex filter and run concurrently. IDs
// OpenAlex does not return are absent from the result.
func (c *Client) Works(ctx context.Context, ids []string) ([]types.Paper, error) {
	var clean []string
	seen := make(map[string]bool)
	for _, id := range ids {
		id = shortID(strings.TrimSpace(id))
		if id != "" && !seen[id] {
			seen[id] = true
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		byID  = make(map[string]types.Paper, len(clean))
		g, gc = errgroup.WithContext(ctx)
	)
	g.SetLimit(lookupConcurrency)
	for start := 0; start < len(clean); start += c.batchSize {
		batch := clean[start:min(start+c.batchSize, len(clean))]
		g.Go(func() error {
			params := url.Values{
				"filter":   {"openalex:" + strings.Join(batch, "|")},
				"per_page": {strconv.Itoa(len(batch))},
				"select":   {selectFields},
			}
			works, err := c.get(gc, params)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, w := range works {
				p := w.toPaper()
				byID[p.OpenAlexID] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("looking up OpenAlex works: %w", err)
	}

	out := make([]types.Paper, 0, len(byID))
	for _, id := range clean {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// get performs one rate-limited, breaker-guarded request.
func (c *Client) get(ctx context.Context, params url.Values) ([]work, error) {
	if c.email != "" {
		params.Set("mailto", c.email)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	works, err := c.breaker.Execute(func() ([]work, error) {
		return c.fetch(ctx, params)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.UpstreamRequests.WithLabelValues(breakerName, "rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		metrics.UpstreamRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(breakerName, "success").Inc()
	return works, nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]work, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, worksURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0, c.logger)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var wr worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	c.logger.Debug("openalex response",
		zap.Int("results", len(wr.Results)),
		zap.Int("total", wr.Meta.Count))
	return wr.Results, nil
}

func toPapers(works []work) []types.Paper {
	out := make([]types.Paper, 0, len(works))
	for _, w := range works {
		out = append(out, w.toPaper())
	}
	return out
}
