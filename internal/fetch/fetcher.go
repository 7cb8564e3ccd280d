package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent mimics a browser so public tile servers serve us like any
// map client.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36"

// ErrKind classifies a failed fetch by whether re-attempting the same
// request could plausibly succeed.
type ErrKind int

const (
	// KindRetryable covers timeouts, connection failures, 5xx and 429.
	KindRetryable ErrKind = iota
	// KindPermanent covers 404 and other 4xx: retrying cannot change the
	// outcome, the tile is absent or the request itself is bad.
	KindPermanent
)

func (k ErrKind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "retryable"
}

// Error is a classified fetch failure.
type Error struct {
	Kind   ErrKind
	Status int // HTTP status code, 0 for transport errors
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s fetch error: status %d", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s fetch error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures the tile HTTP client.
type Options struct {
	// Timeout bounds each individual request. Default: 10s.
	Timeout time.Duration

	// UserAgent overrides the default request User-Agent.
	UserAgent string

	// ProxyURL routes requests through an HTTP(S) proxy. Empty means the
	// environment proxy settings apply.
	ProxyURL string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   10 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// Client fetches single tiles over HTTP. It performs exactly one request per
// call and never retries internally; retry behaviour belongs to Retryer.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a tile client. An explicit proxy URL takes precedence
// over the environment proxy settings.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
	}, nil
}

// FetchTile downloads one tile and returns its bytes. Failures come back as
// *Error carrying the retryable/permanent classification.
func (c *Client) FetchTile(ctx context.Context, tileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Err: fmt.Errorf("malformed tile URL: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, connection resets, DNS failures: all worth retrying.
		return nil, &Error{Kind: KindRetryable, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Kind: KindRetryable, Err: fmt.Errorf("read tile body: %w", err)}
		}
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRetryable, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindRetryable, Status: resp.StatusCode}
	default:
		// 404 and the rest of the 4xx family: the tile does not exist or
		// the request is rejected outright.
		return nil, &Error{Kind: KindPermanent, Status: resp.StatusCode}
	}
}
