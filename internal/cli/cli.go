package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/icnasac/icna-events/internal/calendar"
	"github.com/icnasac/icna-events/internal/config"
	"github.com/icnasac/icna-events/internal/event"
	"github.com/icnasac/icna-events/internal/logger"
	"github.com/icnasac/icna-events/internal/metrics"
	"github.com/icnasac/icna-events/internal/pipeline"
	"github.com/icnasac/icna-events/internal/scraper"
	"github.com/icnasac/icna-events/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitChanged = 2
)

// errChanged is returned by run when --detect-changes is set and the new
// document differs from the previous one.
var errChanged = errors.New("calendar changed")

type runFlags struct {
	configPath    string
	baseURL       string
	output        string
	maxPages      int
	timeout       time.Duration
	format        string
	dryRun        bool
	verbose       bool
	detectChanges bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icna-events",
		Short: "Publish ICNA Sacramento's upcoming events as an iCalendar feed",
		Long: `A CLI tool that scrapes the ICNA Sacramento event listing page by page
and writes every event it finds to a single iCalendar (.ics) file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd(), newValidateCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the listing and write the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, f)
		},
	}

	// Define flags
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML config file (or env: ICNA_EVENTS_CONFIG)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", scraper.DefaultBaseURL, "First page of the event listing")
	cmd.Flags().StringVarP(&f.output, "output", "o", "icna_events.ics", "Calendar file to write")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 5, "Maximum number of listing pages to request")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "Overall run timeout (0 for none)")
	cmd.Flags().StringVar(&f.format, "format", "text", "Summary format: text or json")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Scrape and report without writing the calendar")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Enable verbose logging")
	cmd.Flags().BoolVar(&f.detectChanges, "detect-changes", false, "Exit with status 2 when the calendar changed")

	return cmd
}

// overrides returns config keys for the flags the user actually set.
func (f *runFlags) overrides(cmd *cobra.Command) map[string]any {
	o := make(map[string]any)
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		o["base_url"] = f.baseURL
	}
	if flags.Changed("output") {
		o["output"] = f.output
	}
	if flags.Changed("max-pages") {
		o["max_pages"] = f.maxPages
	}
	if flags.Changed("timeout") {
		o["run_timeout"] = f.timeout
	}
	if f.verbose {
		o["log_level"] = string(logger.LevelDebug)
	}
	return o
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, f *runFlags) error {
	// Validate format
	format := OutputFormat(strings.ToLower(f.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", f.format)
	}

	cfg, err := config.Load(f.configPath, f.overrides(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	normalizer, err := event.LoadNormalizer(cfg.Timezone)
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Output)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	// A previous document that cannot be read only costs the carried-forward
	// stamps.
	stamps, err := store.LoadStamps()
	if err != nil {
		logger.Warn("Ignoring previous calendar", logger.Fields{
			"path":  store.Path(),
			"error": err.Error(),
		})
		stamps = nil
	}

	reg := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(reg)

	paginator := scraper.NewPaginator(
		scraper.NewFetcher(cfg.UserAgent, cfg.PageTimeout),
		scraper.NewExtractor(cfg.Rules),
		cfg.ScraperOptions(),
	).WithMetrics(sink)

	p := pipeline.New(paginator, normalizer, pipeline.Options{
		BaseURL:  cfg.BaseURL,
		Calendar: cfg.CalendarOptions(),
	}).WithPrevious(stamps).WithMetrics(sink)

	res, runErr := p.Run(ctx)

	written := false
	if runErr == nil && !f.dryRun {
		if err := store.Save(res.Document); err != nil {
			runErr = fmt.Errorf("saving calendar: %w", err)
		} else {
			written = true
			logger.Info("Wrote calendar", logger.Fields{
				"path":   store.Path(),
				"events": res.Summary.EventsInDocument,
			})
		}
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Warn("Failed to write metrics", logger.Fields{
				"path":  cfg.MetricsFile,
				"error": err.Error(),
			})
		}
	}

	result := &OutputResult{
		Summary: res.Summary,
		Output:  store.Path(),
		Written: written,
		DryRun:  f.dryRun,
	}
	if runErr != nil && result.Summary.Fatal == "" {
		result.Summary.Fatal = runErr.Error()
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, f.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if path := os.Getenv("GITHUB_STEP_SUMMARY"); path != "" {
		if err := AppendStepSummary(path, result); err != nil {
			logger.Warn("Failed to write step summary", logger.Fields{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	if runErr != nil {
		return runErr
	}
	if f.detectChanges && res.Summary.Changes.Changed() {
		return errChanged
	}
	return nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check that a calendar file parses and every event is complete",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "icna_events.ics"
			if len(args) == 1 {
				path = args[0]
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening calendar: %w", err)
			}
			defer f.Close() // nolint:errcheck

			n, err := calendar.Validate(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d events, valid\n", path, n)
			return nil
		},
	}
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errChanged):
		return ExitChanged
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, errChanged) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}
