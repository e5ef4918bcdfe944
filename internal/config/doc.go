// Package config loads run settings for icna-events.
//
// Values are layered from low to high precedence: built-in defaults, an
// optional YAML file, ICNA_EVENTS_* environment variables, and finally
// explicit overrides (the CLI flags a user actually set). Nested keys such
// as the extraction rules use a double underscore in environment names:
//
//	ICNA_EVENTS_RULES__TITLE__SELECTOR="h2.event-title"
package config
