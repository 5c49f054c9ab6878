package workspace

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rafaeljc/heimdall-sdk/internal/transport"
)

// Snapshot is a raw workspace document together with its Last-Modified stamp.
type Snapshot struct {
	Body         []byte
	LastModified string
}

// HTTPFetcher downloads the workspace document for one SDK key.
type HTTPFetcher struct {
	client *transport.Client
	path   string
}

// NewHTTPFetcher creates a fetcher for sdkKey.
func NewHTTPFetcher(client *transport.Client, sdkKey string) *HTTPFetcher {
	if client == nil {
		panic("workspace: http client cannot be nil")
	}
	return &HTTPFetcher{
		client: client,
		path:   fmt.Sprintf("/api/v2/workspaces/%s/config", sdkKey),
	}
}

// Fetch performs a conditional GET. It returns (nil, nil) on 304 Not Modified.
func (f *HTTPFetcher) Fetch(ctx context.Context, lastModified string) (*Snapshot, error) {
	req, err := f.client.NewRequest(ctx, http.MethodGet, f.path, nil)
	if err != nil {
		return nil, err
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workspace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}
	if !transport.IsSuccessful(resp.StatusCode) {
		return nil, &transport.StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace body: %w", err)
	}

	return &Snapshot{Body: body, LastModified: resp.Header.Get("Last-Modified")}, nil
}
