// Package cli implements the command-line interface for icna-events.
//
// The cli package provides the Cobra-based CLI. The run command loads the
// layered configuration, scrapes the listing through the pipeline, writes the
// calendar atomically, and reports a run summary as text or JSON (and as
// Markdown to $GITHUB_STEP_SUMMARY under GitHub Actions). The validate command
// checks an existing calendar file.
package cli
