package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	apperrors "restaurant-site/internal/common/errors"
	"restaurant-site/internal/common/metrics"
)

// DefaultBaseDelay is the backoff unit: attempt n waits BaseDelay*(n-1).
const DefaultBaseDelay = time.Second

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeHTTPError
	OutcomeTimeout
	OutcomeNetworkError
	// OutcomeInvalidRequest means the request was never sent.
	OutcomeInvalidRequest
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Outcome is the result of Fetch. Body is set for Success and HTTPError, StatusCode
// for any response that arrived, and Err (a *errors.StandardError) for every
// non-success kind.
type Outcome struct {
	Kind       OutcomeKind
	Body       []byte
	StatusCode int
	Err        error
	Attempts   int
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// DecodeJSON unmarshals the body of a successful outcome.
func (o Outcome) DecodeJSON(v interface{}) error {
	if !o.OK() {
		return o.Err
	}
	if err := json.Unmarshal(o.Body, v); err != nil {
		return apperrors.NewShapeValidationError("response", err.Error())
	}
	return nil
}

func (o Outcome) retryable() bool {
	switch o.Kind {
	case OutcomeTimeout, OutcomeNetworkError:
		return true
	case OutcomeHTTPError:
		return o.StatusCode >= 500
	default:
		return false
	}
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher performs requests with a per-attempt deadline and bounded linear retry.
type Fetcher struct {
	client    *Client
	baseDelay time.Duration
	sleep     SleepFunc
}

type FetcherOption func(*Fetcher)

func WithBaseDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.baseDelay = d }
}

// WithSleep replaces the backoff wait, mainly so tests can record delays.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

func NewFetcher(client *Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = NewClientFrom(nil)
	}
	f := &Fetcher{
		client:    client,
		baseDelay: DefaultBaseDelay,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch runs req until it succeeds, fails with a non-retryable outcome, or runs out
// of attempts. Timeouts, network errors and 5xx responses are retried; 4xx is not.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Outcome {
	if req.maxAttempts < 1 || req.url == "" {
		// Zero Request, not built with NewRequest.
		return Outcome{
			Kind: OutcomeInvalidRequest,
			Err: fmt.Errorf("%w: %w", apperrors.NewInvalidRequestError(
				fmt.Sprintf("url %q, max attempts %d", req.url, req.maxAttempts)), ErrInvalidMaxAttempts),
		}
	}

	var last Outcome
	for attempt := 1; attempt <= req.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.baseDelay*time.Duration(attempt-1)); err != nil {
				return last
			}
		}

		out := f.do(ctx, req)
		out.Attempts = attempt
		if out.OK() || !out.retryable() {
			return out
		}
		last = out
		if ctx.Err() != nil {
			return last
		}
	}
	return last
}

func (f *Fetcher) do(ctx context.Context, req Request) Outcome {
	start := time.Now()
	out := f.attempt(ctx, req)
	metrics.FetchAttempts.WithLabelValues(out.Kind.String()).Inc()
	metrics.FetchDuration.WithLabelValues(out.Kind.String()).Observe(time.Since(start).Seconds())
	return out
}

func (f *Fetcher) attempt(ctx context.Context, req Request) Outcome {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, req.url, body)
	if err != nil {
		return Outcome{Kind: OutcomeNetworkError, Err: apperrors.NewNetworkError(req.url, err)}
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.DoWithContext(attemptCtx, httpReq)
	if err != nil {
		return failure(attemptCtx, req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		out := failure(attemptCtx, req, err)
		out.StatusCode = resp.StatusCode
		return out
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{
			Kind:       OutcomeHTTPError,
			Body:       data,
			StatusCode: resp.StatusCode,
			Err:        apperrors.NewHTTPError(req.url, resp.StatusCode),
		}
	}
	return Outcome{Kind: OutcomeSuccess, Body: data, StatusCode: resp.StatusCode}
}

func failure(attemptCtx context.Context, req Request, err error) Outcome {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return Outcome{Kind: OutcomeTimeout, Err: apperrors.NewFetchTimeoutError(req.url, req.timeout)}
	}
	return Outcome{Kind: OutcomeNetworkError, Err: apperrors.NewNetworkError(req.url, err)}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
