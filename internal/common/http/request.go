package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
)

var (
	ErrInvalidURL         = errors.New("INVALID_URL")
	ErrInvalidMethod      = errors.New("INVALID_METHOD")
	ErrInvalidTimeout     = errors.New("INVALID_TIMEOUT")
	ErrInvalidMaxAttempts = errors.New("INVALID_MAX_ATTEMPTS")
)

// Request describes one logical fetch. It is validated by NewRequest and cannot be
// changed afterwards; header and body accessors return copies.
type Request struct {
	url         string
	method      string
	headers     map[string]string
	body        []byte
	timeout     time.Duration
	maxAttempts int
}

type RequestOption func(*Request)

func WithMethod(method string) RequestOption {
	return func(r *Request) { r.method = method }
}

func WithHeader(key, value string) RequestOption {
	return func(r *Request) { r.headers[key] = value }
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range headers {
			r.headers[k] = v
		}
	}
}

func WithBody(body []byte) RequestOption {
	return func(r *Request) { r.body = append([]byte(nil), body...) }
}

func WithTimeout(timeout time.Duration) RequestOption {
	return func(r *Request) { r.timeout = timeout }
}

func WithMaxAttempts(n int) RequestOption {
	return func(r *Request) { r.maxAttempts = n }
}

// NewRequest builds a GET request with a 10s timeout and 3 attempts unless the
// options say otherwise.
func NewRequest(rawURL string, opts ...RequestOption) (Request, error) {
	r := Request{
		url:         rawURL,
		method:      http.MethodGet,
		headers:     make(map[string]string),
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&r)
	}

	u, err := url.Parse(r.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if r.method != http.MethodGet && r.method != http.MethodPost {
		return Request{}, fmt.Errorf("%w: %s", ErrInvalidMethod, r.method)
	}
	if r.timeout <= 0 {
		return Request{}, fmt.Errorf("%w: %s", ErrInvalidTimeout, r.timeout)
	}
	if r.maxAttempts < 1 {
		return Request{}, fmt.Errorf("%w: %d", ErrInvalidMaxAttempts, r.maxAttempts)
	}
	return r, nil
}

func (r Request) URL() string                { return r.url }
func (r Request) Method() string             { return r.method }
func (r Request) Timeout() time.Duration     { return r.timeout }
func (r Request) MaxAttempts() int           { return r.maxAttempts }
func (r Request) Body() []byte               { return append([]byte(nil), r.body...) }
func (r Request) Headers() map[string]string { return copyHeaders(r.headers) }

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
