// Package event turns raw listing items into normalized calendar records.
//
// A Normalizer resolves the free-form date text published on the events site
// into instants in a fixed IANA timezone, and a Builder assigns each record a
// deterministic name-based UUID derived from its title and local start date,
// so the same event keeps its identifier across runs.
package event
