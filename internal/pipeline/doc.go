// Package pipeline runs one scrape: collect the listing, build event records,
// and serialize them into a calendar document.
//
// Failures are kept at the level they happen. A page that cannot be fetched
// or parsed is a PageReport inside the collection; an event whose date cannot
// be understood is an EventFailure in the Summary. Only a source that yields
// nothing usable (ErrSourceUnavailable) or a document that fails its own
// parse-back check ends the run without a document.
package pipeline
