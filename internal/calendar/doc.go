// Package calendar renders event records as an RFC 5545 iCalendar document.
//
// Output is deterministic: events are ordered by start and UID, and events
// whose content has not changed since the previous document keep their
// DTSTAMP, so an unchanged listing produces a byte-identical file.
package calendar
