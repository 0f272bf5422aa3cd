// Package filefetch retrieves the files named by `file` payloads from the
// device's file endpoint and parses them as JSON.
package filefetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/starmirror/internal/ctxlog"
)

// DefaultTimeout bounds a single file request.
const DefaultTimeout = 10 * time.Second

// ErrNotFound is returned when the device answers a file request with an
// error status.
var ErrNotFound = errors.New("file not found")

// Fetcher downloads device files over HTTP.
type Fetcher struct {
	client  *resty.Client
	baseURL string
}

// New creates a Fetcher for the given file endpoint. The requested name is
// appended to baseURL verbatim, so names are expected to carry their own
// leading "/".
func New(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Fetcher{client: c, baseURL: baseURL}
}

// URL returns the address requested for name.
func (f *Fetcher) URL(name string) string {
	return f.baseURL + name
}

// Fetch downloads name and decodes its body as JSON.
func (f *Fetcher) Fetch(ctx context.Context, name string) (any, error) {
	logger := ctxlog.FromContext(ctx)
	url := f.URL(name)

	logger.Debug("Fetching file.", "url", url)
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("file %s: status %d: %w", name, resp.StatusCode(), ErrNotFound)
	}

	var parsed any
	if err := json.Unmarshal([]byte(resp.String()), &parsed); err != nil {
		return nil, fmt.Errorf("file %s is not valid JSON: %w", name, err)
	}
	logger.Debug("File fetched.", "url", url, "status", resp.StatusCode())
	return parsed, nil
}

// Close releases the underlying client.
func (f *Fetcher) Close() error {
	return f.client.Close()
}
