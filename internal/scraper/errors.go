package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FetchError describes a failed page request: a transport failure or timeout
// (StatusCode 0) or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed. Transport errors,
// timeouts, 408, 429 and 5xx are retryable; other statuses and oversized
// bodies are permanent.
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, ErrBodyTooLarge)
	}
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// NotFound reports a 404 or 410, which past the first page marks the end of
// the listing.
func (e *FetchError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// ErrBodyTooLarge means a page exceeded the size the fetcher will read.
var ErrBodyTooLarge = errors.New("response body too large")

// ParseError reports markup the extraction rules cannot make sense of.
// NoItems marks a page that matched no items and showed no empty-listing
// notice.
type ParseError struct {
	URL     string
	Rules   string
	Reason  string
	NoItems bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s with rules %q: %s", e.URL, e.Rules, e.Reason)
}
