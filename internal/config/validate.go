package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/icnasac/icna-events/internal/logger"
	"github.com/icnasac/icna-events/internal/scraper"
)

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("base_url", "must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.Output == "" {
		add("output", "required")
	}

	if c.MaxPages < 1 {
		add("max_pages", "must be at least 1, got %d", c.MaxPages)
	}
	if c.MaxRetries < 0 {
		add("max_retries", "must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryInitialInterval <= 0 {
		add("retry_initial_interval", "must be positive")
	}
	if c.RetryMaxInterval < c.RetryInitialInterval {
		add("retry_max_interval", "must be at least retry_initial_interval (%s)", c.RetryInitialInterval)
	}
	if c.PageTimeout <= 0 {
		add("page_timeout", "must be positive")
	}
	if c.RunTimeout < 0 {
		add("run_timeout", "must not be negative")
	}
	if c.Concurrency < 1 {
		add("concurrency", "must be at least 1, got %d", c.Concurrency)
	}

	switch c.Pager {
	case scraper.PagerPath:
	case scraper.PagerQuery:
		if c.PageParam == "" {
			add("page_param", "required when pager is %q", scraper.PagerQuery)
		}
	default:
		add("pager", "must be %q or %q, got %q", scraper.PagerPath, scraper.PagerQuery, c.Pager)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		add("timezone", "unknown IANA zone %q", c.Timezone)
	}
	if c.DefaultDuration <= 0 {
		add("default_duration", "must be positive")
	}
	if c.UIDDomain == "" {
		add("uid_domain", "required")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		add("log_level", "%v", err)
	}

	if c.Rules.Item == "" {
		add("rules.item", "required")
	}
	if c.Rules.Title.Selector == "" {
		add("rules.title.selector", "required")
	}
	for _, f := range []struct{ field, sel string }{
		{"rules.container", c.Rules.Container},
		{"rules.item", c.Rules.Item},
		{"rules.empty", c.Rules.Empty},
		{"rules.title.selector", c.Rules.Title.Selector},
		{"rules.date.selector", c.Rules.Date.Selector},
		{"rules.time.selector", c.Rules.Time.Selector},
		{"rules.location.selector", c.Rules.Location.Selector},
		{"rules.description.selector", c.Rules.Description.Selector},
		{"rules.link.selector", c.Rules.Link.Selector},
	} {
		if f.sel == "" {
			continue
		}
		if _, err := cascadia.Compile(f.sel); err != nil {
			add(f.field, "invalid selector %q: %v", f.sel, err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
