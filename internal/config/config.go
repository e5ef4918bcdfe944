package config

import (
	"time"

	"github.com/icnasac/icna-events/internal/calendar"
	"github.com/icnasac/icna-events/internal/event"
	"github.com/icnasac/icna-events/internal/logger"
	"github.com/icnasac/icna-events/internal/scraper"
)

// Config holds everything a run needs.
type Config struct {
	// BaseURL is page 1 of the event listing.
	BaseURL string `koanf:"base_url"`

	// Output is the path of the generated calendar.
	Output string `koanf:"output"`

	MaxPages             int           `koanf:"max_pages"`
	MaxRetries           int           `koanf:"max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`

	// PageTimeout bounds a single fetch; RunTimeout bounds the whole run.
	// A zero RunTimeout means no overall limit.
	PageTimeout time.Duration `koanf:"page_timeout"`
	RunTimeout  time.Duration `koanf:"run_timeout"`

	// Concurrency is the number of pages fetched in parallel.
	Concurrency int `koanf:"concurrency"`

	// Pager selects how page N's URL is built: "path" or "query".
	Pager     string `koanf:"pager"`
	PageParam string `koanf:"page_param"`

	Timezone        string        `koanf:"timezone"`
	UserAgent       string        `koanf:"user_agent"`
	DefaultDuration time.Duration `koanf:"default_duration"`
	UIDDomain       string        `koanf:"uid_domain"`
	CalendarName    string        `koanf:"calendar_name"`

	LogLevel string `koanf:"log_level"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`

	Rules scraper.Rules `koanf:"rules"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	opts := scraper.DefaultOptions()
	return &Config{
		BaseURL:              scraper.DefaultBaseURL,
		Output:               "icna_events.ics",
		MaxPages:             opts.MaxPages,
		MaxRetries:           opts.MaxRetries,
		RetryInitialInterval: opts.InitialInterval,
		RetryMaxInterval:     opts.MaxInterval,
		PageTimeout:          scraper.Timeout,
		RunTimeout:           5 * time.Minute,
		Concurrency:          opts.Concurrency,
		Pager:                opts.Pager.Style,
		PageParam:            opts.Pager.Param,
		Timezone:             event.DefaultTimezone,
		UserAgent:            scraper.UserAgent,
		DefaultDuration:      calendar.DefaultDuration,
		UIDDomain:            calendar.DefaultUIDDomain,
		CalendarName:         calendar.DefaultName,
		LogLevel:             string(logger.LevelInfo),
		Rules:                scraper.ICNASacramento,
	}
}

// ScraperOptions returns the pagination settings.
func (c *Config) ScraperOptions() scraper.Options {
	return scraper.Options{
		MaxPages:        c.MaxPages,
		MaxRetries:      c.MaxRetries,
		InitialInterval: c.RetryInitialInterval,
		MaxInterval:     c.RetryMaxInterval,
		Concurrency:     c.Concurrency,
		Pager:           scraper.Pager{Style: c.Pager, Param: c.PageParam},
	}
}

// CalendarOptions returns the serializer settings. Now and Stamps are
// filled in per run.
func (c *Config) CalendarOptions() calendar.Options {
	return calendar.Options{
		DefaultDuration: c.DefaultDuration,
		UIDDomain:       c.UIDDomain,
		ProductID:       calendar.DefaultProductID,
		Name:            c.CalendarName,
		Timezone:        c.Timezone,
	}
}
