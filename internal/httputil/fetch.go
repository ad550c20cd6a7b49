// Package httputil is the shared outbound HTTP layer for both upstream
// weather providers: a timeout-bounded client, retry with exponential
// backoff, a per-provider circuit breaker, and JSON payload parsing.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"darksky-relay/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

// Per-request budget for retries; an upstream that keeps failing past
// this point counts as unavailable.
const maxRetryElapsed = 20 * time.Second

// NewClient returns an HTTP client with the standard timeout.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// Fetcher issues GET requests against one upstream provider and parses
// the response body as JSON. All calls share the provider's circuit
// breaker, so a provider that is hard down stops consuming the retry
// budget of every request.
type Fetcher struct {
	provider string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher for the named provider.
func NewFetcher(provider string, client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	return &Fetcher{
		provider: provider,
		client:   client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        provider,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// GetJSON fetches url and returns the parsed JSON document. The
// endpoint label is only used for metrics. Rate-limit and server-error
// responses are retried with exponential backoff; other failures are
// permanent. Any error here means the payload is unusable.
func (f *Fetcher) GetJSON(ctx context.Context, endpoint, url string, headers map[string]string) (gjson.Result, error) {
	start := time.Now()

	var body []byte
	operation := func() error {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.attempt(ctx, url, headers)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("circuit open for %s: %w", f.provider, err))
			}
			return err
		}
		body = result.([]byte)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryElapsed
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))

	metrics.UpstreamLatency.WithLabelValues(f.provider, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(f.provider, endpoint, "error").Inc()
		return gjson.Result{}, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(f.provider, endpoint, "ok").Inc()

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s %s: malformed JSON payload", f.provider, endpoint)
	}
	return gjson.ParseBytes(body), nil
}

// attempt performs a single GET. Transient upstream states are returned
// as plain errors so the retry loop picks them up; everything else is
// marked permanent.
func (f *Fetcher) attempt(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("status %d from %s: %s", resp.StatusCode, url, truncate(b)))
	}
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
