package fetchx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// redirectLimit bounds how many 3xx hops FetchBuffer follows.
const redirectLimit = 5

var (
	// ErrTooManyRedirects reports that a fetch exceeded the redirect bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout reports that a fetch exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// NetworkError reports a transport failure or a non-2xx terminal status.
type NetworkError struct {
	URL    string
	Status string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %s", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client performs bounded-redirect buffer fetches. Retry policy, if any, is
// the caller's responsibility.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// New builds a client with the given per-request deadline.
func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// via holds the prior requests, so hop N is checked with
				// len(via) == N. A chain of exactly redirectLimit hops is
				// allowed; only exceeding it fails.
				if len(via) > redirectLimit {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		userAgent: "auxdeck/1.0",
	}
}

// FetchBuffer performs a GET and returns the complete response body.
// Redirects are followed transparently up to the limit; exceeding it yields
// ErrTooManyRedirects, a deadline yields ErrTimeout, and any other transport
// failure or non-2xx terminal status yields a *NetworkError.
func (c *Client) FetchBuffer(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrTooManyRedirects)
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrTimeout)
		}
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{URL: rawURL, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrTimeout)
		}
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}
