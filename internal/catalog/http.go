package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/abgdnv/buyflow/pkg/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// HTTPClient implements Client against the REST catalog API.
// Transient failures (network errors, 5xx, 429) are retried with exponential
// backoff; repeated failures trip a circuit breaker so a dead catalog does
// not stall every page load for the full retry budget.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	retry   config.RetryConfig
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a catalog client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, res config.ResilienceConfig, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   res.Retry,
		breaker: newBreaker(res.CircuitBreaker),
		logger:  logger.With("component", "catalog"),
	}
}

// newBreaker builds the circuit breaker guarding catalog calls.
// IsSuccessful treats ErrProductNotFound as a normal outcome: a missing
// product is not a system failure and must not trip the breaker.
func newBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[any] {
	st := gobreaker.Settings{
		Name:        "catalog-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	}
	return gobreaker.NewCircuitBreaker[any](st)
}

// List retrieves one page of products via GET /products?limit=&skip=.
func (c *HTTPClient) List(ctx context.Context, limit, skip int) (*Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var page Page
	if err := c.getJSON(ctx, "/products", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindByID retrieves a single product via GET /products/{id}.
func (c *HTTPClient) FindByID(ctx context.Context, id int) (*Product, error) {
	var product Product
	if err := c.getJSON(ctx, "/products/"+strconv.Itoa(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories retrieves the category list via GET /products/categories.
func (c *HTTPClient) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.getJSON(ctx, "/products/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// getJSON performs a GET request with retry and circuit breaking, decoding
// the response body into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	op := func() error {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doGet(ctx, target, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Breaker rejections do not hit the network; retrying within the
			// same call will not help until the open timeout elapses.
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialBackoff
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retry.MaxAttempts-1)), ctx))
	if err != nil {
		c.logger.Warn("catalog request failed", "url", target, "error", err)
		return err
	}
	return nil
}

// doGet performs a single GET attempt. Non-retryable outcomes are wrapped
// in backoff.Permanent so the retry loop stops immediately.
func (c *HTTPClient) doGet(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: build request: %v", ErrUnavailable, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(ErrProductNotFound)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrUnavailable, err))
	}
	return nil
}
