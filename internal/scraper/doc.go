// Package scraper fetches the paginated ICNA Sacramento events listing and
// extracts raw event fields from it.
//
// A Fetcher performs single HTTP requests, an Extractor applies selector Rules
// to page markup, and a Paginator walks pages 1, 2, 3, ... with retry and
// backoff until the listing runs out. Page-level failures never abort a run;
// they are recorded in the Collection's PageReports.
package scraper
