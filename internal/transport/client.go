// Package transport provides the HTTP client shared by the workspace fetcher
// and the event dispatcher. Every request is stamped with the SDK identity.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SDK identifies the calling SDK to the backend.
type SDK struct {
	Key     string
	Name    string
	Version string
}

// Client is a thin wrapper over *http.Client bound to a base URL.
type Client struct {
	base *url.URL
	http *http.Client
	sdk  SDK
	now  func() time.Time
}

// New creates a client for baseURL. A zero timeout defaults to 10s.
func New(baseURL string, sdk SDK, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		sdk:  sdk,
		now:  time.Now,
	}, nil
}

// NewRequest builds a request for path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("X-HACKLE-SDK-KEY", c.sdk.Key)
	req.Header.Set("X-HACKLE-SDK-NAME", c.sdk.Name)
	req.Header.Set("X-HACKLE-SDK-VERSION", c.sdk.Version)
	req.Header.Set("X-HACKLE-SDK-TIME", strconv.FormatInt(c.now().UnixMilli(), 10))
	return req, nil
}

// Do executes req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// IsSuccessful reports a 2xx status code.
func IsSuccessful(code int) bool {
	return code >= 200 && code < 300
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status code: %d", e.Code)
}
