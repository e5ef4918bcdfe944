// Package storage persists the generated iCalendar document.
//
// The previous document is read back to recover each event's DTSTAMP and a
// content fingerprint, which lets unchanged events keep their stamps across
// runs. New documents replace the old one atomically via rename.
package storage
