package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/icnasac/icna-events/internal/calendar"
	"github.com/icnasac/icna-events/internal/event"
	"github.com/icnasac/icna-events/internal/logger"
	"github.com/icnasac/icna-events/internal/metrics"
	"github.com/icnasac/icna-events/internal/scraper"
)

// ErrSourceUnavailable means the listing produced nothing worth publishing.
var ErrSourceUnavailable = errors.New("event source unavailable")

// Collector gathers raw events from the listing.
type Collector interface {
	Collect(ctx context.Context, baseURL string) (*scraper.Collection, error)
}

// Options configures a Pipeline.
type Options struct {
	BaseURL  string
	Calendar calendar.Options
}

// EventFailure records an item that could not become an event.
type EventFailure struct {
	Page   int    `json:"page"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Summary describes one run.
type Summary struct {
	RunID            string               `json:"run_id"`
	StartedAt        time.Time            `json:"started_at"`
	Duration         time.Duration        `json:"duration_ns"`
	BaseURL          string               `json:"base_url"`
	PagesFetched     int                  `json:"pages_fetched"`
	PagesSkipped     int                  `json:"pages_skipped"`
	EventsExtracted  int                  `json:"events_extracted"`
	EventsFailed     int                  `json:"events_failed"`
	EventsDuplicate  int                  `json:"events_duplicate"`
	EventsInDocument int                  `json:"events_in_document"`
	Changes          calendar.Changes     `json:"changes"`
	Pages            []scraper.PageReport `json:"pages"`
	Failures         []EventFailure       `json:"failures,omitempty"`
	Fatal            string               `json:"fatal,omitempty"`
}

// Result is the outcome of Run. Document is empty when the run was fatal.
type Result struct {
	Document string
	Summary  Summary
}

// Pipeline wires a Collector to the record builder and serializer.
type Pipeline struct {
	collector  Collector
	normalizer *event.Normalizer
	opts       Options
	previous   map[string]calendar.Stamp
	metrics    metrics.Sink
	now        func() time.Time
}

// New creates a Pipeline. An empty BaseURL means scraper.DefaultBaseURL.
func New(collector Collector, normalizer *event.Normalizer, opts Options) *Pipeline {
	if opts.BaseURL == "" {
		opts.BaseURL = scraper.DefaultBaseURL
	}
	return &Pipeline{
		collector:  collector,
		normalizer: normalizer,
		opts:       opts,
		metrics:    metrics.NoopSink{},
		now:        time.Now,
	}
}

// WithPrevious supplies the stamps of the previously published document.
func (p *Pipeline) WithPrevious(stamps map[string]calendar.Stamp) *Pipeline {
	p.previous = stamps
	return p
}

// WithMetrics sets the metrics sink.
func (p *Pipeline) WithMetrics(sink metrics.Sink) *Pipeline {
	if sink != nil {
		p.metrics = sink
	}
	return p
}

// WithClock replaces time.Now for the generation timestamp and run timing.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run performs one scrape. A fatal run still returns its Summary alongside
// the error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()
	res := &Result{Summary: Summary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		BaseURL:   p.opts.BaseURL,
	}}

	logger.Info("Starting run", logger.Fields{
		"run_id":   res.Summary.RunID,
		"base_url": p.opts.BaseURL,
	})

	err := p.run(ctx, res)

	res.Summary.Duration = p.now().Sub(start)
	p.metrics.RunCompleted(res.Summary.Duration, res.Summary.EventsInDocument, err)

	if err != nil {
		res.Document = ""
		res.Summary.EventsInDocument = 0
		res.Summary.Fatal = err.Error()
		logger.Error("Run failed", logger.Fields{
			"run_id":        res.Summary.RunID,
			"pages_fetched": res.Summary.PagesFetched,
			"pages_skipped": res.Summary.PagesSkipped,
		}, err)
		return res, err
	}

	logger.Info("Run complete", logger.Fields{
		"run_id":             res.Summary.RunID,
		"pages_fetched":      res.Summary.PagesFetched,
		"pages_skipped":      res.Summary.PagesSkipped,
		"events_extracted":   res.Summary.EventsExtracted,
		"events_failed":      res.Summary.EventsFailed,
		"events_duplicate":   res.Summary.EventsDuplicate,
		"events_in_document": res.Summary.EventsInDocument,
		"duration_ms":        res.Summary.Duration.Milliseconds(),
	})
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	s := &res.Summary

	coll, err := p.collector.Collect(ctx, p.opts.BaseURL)
	if coll != nil {
		s.Pages = coll.Pages
		s.PagesFetched = coll.Fetched()
		s.PagesSkipped = coll.Skipped()
	}
	if err != nil {
		return fmt.Errorf("collecting events: %w", err)
	}

	if coll.Fetched() == 0 {
		return fmt.Errorf("%w: no listing page could be fetched", ErrSourceUnavailable)
	}
	// A page the rules cannot read is unparseable, never empty, so a markup
	// change lands here rather than in an empty document.
	if coll.Parsed() == 0 {
		return fmt.Errorf("%w: no fetched page matched the extraction rules", ErrSourceUnavailable)
	}

	records := p.build(coll.Items, s)

	opts := p.opts.Calendar
	opts.Now = p.now()
	opts.Stamps = p.previous

	doc, err := calendar.Serialize(records, opts)
	if err != nil {
		return fmt.Errorf("serializing calendar: %w", err)
	}

	res.Document = doc
	s.EventsInDocument = len(records)
	s.Changes = calendar.Diff(p.previous, calendar.Entries(records, opts))
	return nil
}

func (p *Pipeline) build(items []event.Raw, s *Summary) []*event.Record {
	builder := event.NewBuilder(p.normalizer)
	records := make([]*event.Record, 0, len(items))

	for _, raw := range items {
		s.EventsExtracted++

		rec, err := builder.Build(raw)
		switch {
		case errors.Is(err, event.ErrDuplicate):
			s.EventsDuplicate++
			p.metrics.EventOutcome(metrics.OutcomeDuplicate)
			logger.Debug("Dropped duplicate event", logger.Fields{
				"page":  raw.Page,
				"index": raw.Index,
				"title": raw.Title,
			})
		case err != nil:
			s.EventsFailed++
			s.Failures = append(s.Failures, EventFailure{
				Page:   raw.Page,
				Index:  raw.Index,
				Title:  raw.Title,
				Reason: err.Error(),
			})
			p.metrics.EventOutcome(metrics.OutcomeFailed)
			logger.Warn("Skipping event", logger.Fields{
				"page":  raw.Page,
				"index": raw.Index,
				"title": raw.Title,
				"error": err.Error(),
			})
		default:
			records = append(records, rec)
			p.metrics.EventOutcome(metrics.OutcomeBuilt)
		}
	}

	return records
}
