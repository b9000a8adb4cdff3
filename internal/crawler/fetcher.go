package crawler

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Response is the outcome of a completed HTTP fetch: the pieces of the
// response the crawl engine consumes. A non-2xx status is a Response, not
// an error; only transport-level failures surface as errors.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the HTTP status text (e.g. "200 OK").
	Status string

	// Header contains the response headers as received.
	Header http.Header

	// Body is the response body, truncated to the configured limit.
	Body []byte
}

// Fetcher retrieves a single URI. Implementations must treat timeouts and
// transport errors uniformly as a returned error.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*Response, error)
}

// HTTPFetcher fetches pages over plain HTTP(S) with a per-request timeout.
type HTTPFetcher struct {
	// client is the HTTP client; its Timeout bounds each fetch.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// headers are extra request headers applied to every fetch.
	headers map[string]string

	// cookie is an optional Cookie header value ("name=value" form).
	cookie string
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithRequestHeaders sets extra request headers sent with every fetch.
func WithRequestHeaders(headers map[string]string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithCookie sets a Cookie header sent with every fetch.
func WithCookie(cookie string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates an HTTPFetcher whose individual fetches time out
// after the given duration. The timeout bounds one fetch, never the run.
func NewHTTPFetcher(timeout time.Duration, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are never followed: a record's status, headers,
			// and body must belong to the record's own address. A 3xx is
			// returned as-is and the engine decides what to do with the
			// Location target.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:   "linkprobe/1.0",
		maxBodySize: 5 * 1024 * 1024, // 5MB
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch performs a GET request against the URI and returns the response
// pieces the engine needs. Transport errors (including timeout) return an
// error; any received status code returns a Response.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for name, value := range f.headers {
		req.Header.Set(name, value)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
