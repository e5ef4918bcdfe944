package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/icnasac/icna-events/internal/event"
	"github.com/icnasac/icna-events/internal/logger"
)

// Pager styles.
const (
	PagerPath  = "path"  // <base>/page/N/
	PagerQuery = "query" // <base>?page=N
)

// Page statuses recorded in PageReport.
const (
	PageOK          = "ok"
	PageEmpty       = "empty"
	PageSkipped     = "skipped"
	PageUnparseable = "unparseable"
	PageNotFound    = "not_found"
)

// Pager builds the URL of listing page N from the base URL.
type Pager struct {
	Style string
	Param string
}

// PageURL returns the URL of page n. Page 1 is the base URL itself.
func (p Pager) PageURL(base string, n int) (string, error) {
	if n <= 1 {
		return base, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	switch p.Style {
	case PagerQuery:
		param := p.Param
		if param == "" {
			param = "page"
		}
		q := u.Query()
		q.Set(param, strconv.Itoa(n))
		u.RawQuery = q.Encode()
	case PagerPath, "":
		u.Path = strings.TrimSuffix(u.Path, "/") + "/page/" + strconv.Itoa(n) + "/"
	default:
		return "", fmt.Errorf("unknown pager style %q", p.Style)
	}

	return u.String(), nil
}

// Options controls a Paginator.
type Options struct {
	MaxPages        int
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Concurrency     int
	Pager           Pager
}

// DefaultOptions returns the options used against the source site.
func DefaultOptions() Options {
	return Options{
		MaxPages:        5,
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		Concurrency:     1,
		Pager:           Pager{Style: PagerPath, Param: "page"},
	}
}

// MetricsSink receives per-attempt and per-page observations.
type MetricsSink interface {
	FetchAttempt(statusCode int, err error, d time.Duration)
	PageCompleted(status string)
}

type nopSink struct{}

func (nopSink) FetchAttempt(int, error, time.Duration) {}
func (nopSink) PageCompleted(string)                   {}

// PageReport is the outcome of one listing page.
type PageReport struct {
	Page     int    `json:"page"`
	URL      string `json:"url"`
	Status   string `json:"status"`
	Items    int    `json:"items"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Collection is everything gathered from the listing, in page order and then
// in-page order.
type Collection struct {
	Items []event.Raw
	Pages []PageReport
}

// Fetched counts pages that returned a body.
func (c *Collection) Fetched() int {
	return c.count(PageOK, PageEmpty, PageUnparseable)
}

// Skipped counts pages that contributed nothing because of a failure.
func (c *Collection) Skipped() int {
	return c.count(PageSkipped, PageUnparseable)
}

// Parsed counts pages the extraction rules understood.
func (c *Collection) Parsed() int {
	return c.count(PageOK, PageEmpty)
}

func (c *Collection) count(statuses ...string) int {
	n := 0
	for _, p := range c.Pages {
		for _, s := range statuses {
			if p.Status == s {
				n++
				break
			}
		}
	}
	return n
}

// Paginator walks the listing page by page.
type Paginator struct {
	fetcher   PageFetcher
	extractor *Extractor
	opts      Options
	metrics   MetricsSink
}

// NewPaginator creates a Paginator. Non-positive MaxPages and Concurrency
// fall back to DefaultOptions.
func NewPaginator(fetcher PageFetcher, extractor *Extractor, opts Options) *Paginator {
	def := DefaultOptions()
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}
	if opts.MaxInterval < opts.InitialInterval {
		opts.MaxInterval = opts.InitialInterval
	}
	return &Paginator{
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		metrics:   nopSink{},
	}
}

// WithMetrics sets the sink for fetch and page observations.
func (p *Paginator) WithMetrics(sink MetricsSink) *Paginator {
	if sink != nil {
		p.metrics = sink
	}
	return p
}

type pageResult struct {
	report PageReport
	items  []event.Raw
}

// Collect requests pages 1, 2, ... until a page yields no items, a page past
// the first is not found, or MaxPages is reached. Pages that keep failing
// after retries, or whose markup the rules reject, are recorded and skipped.
//
// With Concurrency > 1 pages are fetched in windows of that size; results are
// still consumed in page order and anything after a terminating page in the
// same window is discarded. The returned error is non-nil only when ctx ends.
func (p *Paginator) Collect(ctx context.Context, baseURL string) (*Collection, error) {
	c := &Collection{}
	window := p.opts.Concurrency

	for first := 1; first <= p.opts.MaxPages; first += window {
		if err := ctx.Err(); err != nil {
			return c, err
		}

		last := min(first+window-1, p.opts.MaxPages)
		results := make([]pageResult, last-first+1)

		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = p.page(ctx, baseURL, first+i)
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			c.Pages = append(c.Pages, r.report)
			c.Items = append(c.Items, r.items...)
			p.metrics.PageCompleted(r.report.Status)

			if r.report.Status == PageEmpty || r.report.Status == PageNotFound {
				logger.Debug("End of listing", logger.Fields{
					"page":   r.report.Page,
					"status": r.report.Status,
				})
				return c, ctx.Err()
			}
		}
	}

	return c, ctx.Err()
}

func (p *Paginator) page(ctx context.Context, baseURL string, n int) pageResult {
	res := pageResult{report: PageReport{Page: n}}

	pageURL, err := p.opts.Pager.PageURL(baseURL, n)
	if err != nil {
		res.report.Status = PageSkipped
		res.report.Error = err.Error()
		return res
	}
	res.report.URL = pageURL

	markup, attempts, err := p.fetch(ctx, pageURL)
	res.report.Attempts = attempts
	if err != nil {
		var ferr *FetchError
		if n > 1 && errors.As(err, &ferr) && ferr.NotFound() {
			res.report.Status = PageNotFound
			return res
		}
		res.report.Status = PageSkipped
		res.report.Error = err.Error()
		logger.Warn("Skipping page", logger.Fields{
			"page":     n,
			"url":      pageURL,
			"attempts": attempts,
			"error":    err.Error(),
		})
		return res
	}

	seq, err := p.extractor.Extract(pageURL, markup)
	var perr *ParseError
	if n > 1 && errors.As(err, &perr) && perr.NoItems {
		// past the last page some sites render the bare template
		res.report.Status = PageEmpty
		logger.Debug("Page has no items", logger.Fields{
			"page": n,
			"url":  pageURL,
		})
		return res
	}
	if err != nil {
		res.report.Status = PageUnparseable
		res.report.Error = err.Error()
		logger.Warn("Skipping unparseable page", logger.Fields{
			"page":  n,
			"url":   pageURL,
			"error": err.Error(),
		})
		return res
	}

	for raw := range seq {
		raw.Page = n
		res.items = append(res.items, raw)
	}
	res.report.Items = len(res.items)
	res.report.Status = PageOK
	if len(res.items) == 0 {
		res.report.Status = PageEmpty
	}

	logger.Debug("Page collected", logger.Fields{
		"page":  n,
		"url":   pageURL,
		"items": len(res.items),
	})
	return res
}

// fetch retrieves pageURL with exponential backoff, returning the number of
// attempts made.
func (p *Paginator) fetch(ctx context.Context, pageURL string) (string, int, error) {
	var markup string
	attempts := 0

	op := func() error {
		attempts++
		start := time.Now()
		body, err := p.fetcher.Fetch(ctx, pageURL)
		code, terr := attemptStatus(err)
		p.metrics.FetchAttempt(code, terr, time.Since(start))
		if err != nil {
			var ferr *FetchError
			if errors.As(err, &ferr) && ferr.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		markup = body
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Retrying page fetch", logger.Fields{
			"url":     pageURL,
			"attempt": attempts,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	err := backoff.RetryNotify(op, p.newBackOff(ctx), notify)
	return markup, attempts, err
}

// attemptStatus splits a fetch outcome into an HTTP status and a transport
// error, at most one of which is set.
func attemptStatus(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}
	var ferr *FetchError
	if errors.As(err, &ferr) && ferr.StatusCode != 0 {
		return ferr.StatusCode, nil
	}
	return 0, err
}

func (p *Paginator) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.opts.InitialInterval
	eb.MaxInterval = p.opts.MaxInterval
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.opts.MaxRetries)), ctx)
}
