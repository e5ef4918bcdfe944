package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	DefaultBaseURL = "https://icnasac.org/up-coming-events/"
	UserAgent      = "icna-events/1.0 (github.com/icnasac/icna-events)"
	Timeout        = 30 * time.Second

	// maxBodySize caps a single listing page.
	maxBodySize = 10 << 20
)

// PageFetcher retrieves the markup of one listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Fetcher performs one HTTP GET per call. It never retries; the Paginator owns
// retry policy.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher creates a Fetcher. Zero values fall back to UserAgent and Timeout.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = UserAgent
	}
	if timeout <= 0 {
		timeout = Timeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Fetch returns the page body transcoded to UTF-8. Failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(raw) > maxBodySize {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxBodySize)}
	}

	body, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("decoding charset: %w", err)}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	return string(data), nil
}
