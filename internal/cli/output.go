package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/icnasac/icna-events/internal/pipeline"
	"github.com/icnasac/icna-events/internal/scraper"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	pipeline.Summary
	Output  string `json:"output"`
	Written bool   `json:"written"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	s := result.Summary

	if s.Fatal != "" {
		fmt.Fprintf(w, "Run failed: %s\n", s.Fatal)
	} else {
		switch {
		case result.Written:
			fmt.Fprintf(w, "Wrote %d events to %s\n", s.EventsInDocument, result.Output)
		case result.DryRun:
			fmt.Fprintf(w, "Dry run: %d events, %s not written\n", s.EventsInDocument, result.Output)
		}
		fmt.Fprintf(w, "Changes: %d new, %d updated, %d removed, %d unchanged\n",
			s.Changes.New, s.Changes.Updated, s.Changes.Removed, s.Changes.Unchanged)
	}

	fmt.Fprintf(w, "Pages: %d fetched, %d skipped\n", s.PagesFetched, s.PagesSkipped)
	fmt.Fprintf(w, "Events: %d extracted, %d failed, %d duplicate\n",
		s.EventsExtracted, s.EventsFailed, s.EventsDuplicate)

	if verbose {
		for _, p := range s.Pages {
			fmt.Fprintf(w, "  page %d: %s (%d items, %d attempts)", p.Page, p.Status, p.Items, p.Attempts)
			if p.Error != "" {
				fmt.Fprintf(w, ": %s", p.Error)
			}
			fmt.Fprintln(w)
		}
	}

	for _, f := range s.Failures {
		fmt.Fprintf(w, "  FAILED (page %d): %s: %s\n", f.Page, f.Title, f.Reason)
	}

	if verbose {
		fmt.Fprintf(w, "Run %s took %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	}

	return nil
}

// AppendStepSummary appends a Markdown report to the GitHub Actions step
// summary file at path.
func AppendStepSummary(path string, result *OutputResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	defer f.Close() // nolint:errcheck

	_, err = io.WriteString(f, stepSummary(result))
	return err
}

func stepSummary(result *OutputResult) string {
	s := result.Summary
	var b strings.Builder

	b.WriteString("## ICNA Sacramento events\n\n")
	if s.Fatal != "" {
		fmt.Fprintf(&b, "**Run failed:** %s\n\n", s.Fatal)
	} else {
		fmt.Fprintf(&b, "%d events in `%s`", s.EventsInDocument, result.Output)
		if !result.Written {
			b.WriteString(" (not written)")
		}
		b.WriteString("\n\n")
	}

	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Pages fetched | %d |\n", s.PagesFetched)
	fmt.Fprintf(&b, "| Pages skipped | %d |\n", s.PagesSkipped)
	fmt.Fprintf(&b, "| Events extracted | %d |\n", s.EventsExtracted)
	fmt.Fprintf(&b, "| Events failed | %d |\n", s.EventsFailed)
	fmt.Fprintf(&b, "| Duplicates dropped | %d |\n", s.EventsDuplicate)
	if s.Fatal == "" {
		fmt.Fprintf(&b, "| New / updated / removed | %d / %d / %d |\n",
			s.Changes.New, s.Changes.Updated, s.Changes.Removed)
	}

	var skipped []scraper.PageReport
	for _, p := range s.Pages {
		if p.Status == scraper.PageSkipped || p.Status == scraper.PageUnparseable {
			skipped = append(skipped, p)
		}
	}
	if len(skipped) > 0 {
		b.WriteString("\n### Skipped pages\n\n")
		for _, p := range skipped {
			fmt.Fprintf(&b, "- page %d (%s): %s\n", p.Page, p.Status, p.Error)
		}
	}

	if len(s.Failures) > 0 {
		b.WriteString("\n### Events not published\n\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "- %s (page %d): %s\n", f.Title, f.Page, f.Reason)
		}
	}

	b.WriteString("\n")
	return b.String()
}
