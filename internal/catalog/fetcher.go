package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxBodyBytes bounds a downloaded catalog.
const maxBodyBytes = 10 << 20

// Fetcher retrieves a catalog file over HTTP, retrying transient failures.
type Fetcher struct {
	sourceURL string
	client    *retryablehttp.Client
	archive   *Archive
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher for the given URL.
func NewFetcher(sourceURL string, logger *slog.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	} else {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{sourceURL: sourceURL, client: client, logger: logger}
}

// WithArchive makes f save every download to a and fall back to the newest
// archived copy when the server cannot be reached.
func (f *Fetcher) WithArchive(a *Archive) *Fetcher {
	f.archive = a
	return f
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET and returns the catalog body.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.download(ctx)
	if f.archive == nil {
		return body, err
	}
	if err != nil {
		data, fetched, aerr := f.archive.Latest()
		if aerr != nil {
			return nil, err
		}
		f.logger.Warn("catalog download failed, using archived copy",
			"url", f.sourceURL,
			"fetched_at", fetched.UTC().Format(time.RFC3339),
			"error", err,
		)
		return data, nil
	}
	if err := f.archive.Save(body, time.Now()); err != nil {
		f.logger.Warn("could not archive catalog", "error", err)
	}
	return body, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	if f.sourceURL == "" {
		return nil, fmt.Errorf("no catalog URL configured")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("catalog exceeds %d byte limit", maxBodyBytes)
	}
	return body, nil
}
