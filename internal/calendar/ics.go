package calendar

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/icnasac/icna-events/internal/event"
)

const (
	DefaultProductID = "-//ICNA Sacramento//icna-events//EN"
	DefaultUIDDomain = "icnasac.org"
	DefaultDuration  = 2 * time.Hour
	DefaultName      = "ICNA Sacramento Events"

	utcFormat  = "20060102T150405Z"
	dateFormat = "20060102"
)

// Options controls document generation.
type Options struct {
	// Now is the generation timestamp used for DTSTAMP and LAST-MODIFIED.
	Now time.Time

	// DefaultDuration is applied to timed events without an end.
	DefaultDuration time.Duration

	UIDDomain string
	ProductID string
	Name      string
	Timezone  string

	// Stamps maps UID to the stamp of the same event in the previous
	// document. An event whose fingerprint is unchanged keeps its stamp.
	Stamps map[string]Stamp
}

// Stamp is what the previous document recorded for one event.
type Stamp struct {
	At          time.Time
	Fingerprint string
}

// Fields are the serialized values of one event, in their iCalendar form
// before escaping: Start and End are the DTSTART and DTEND values.
type Fields struct {
	Summary     string
	Start       string
	End         string
	Location    string
	Description string
	URL         string
}

// Fingerprint identifies the event's content.
func (f Fields) Fingerprint() string {
	h := sha1.New()
	for _, s := range []string{f.Summary, f.Start, f.End, f.Location, f.Description, f.URL} {
		h.Write([]byte(s))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one event as it will appear in the document.
type Entry struct {
	UID    string
	Start  time.Time
	End    time.Time
	AllDay bool
	Fields Fields
}

// Entries resolves records into document order: ascending start, ties broken
// by UID. Missing ends become start plus the default duration for timed
// events and the following day for all-day events.
func Entries(records []*event.Record, opts Options) []Entry {
	opts = withDefaults(opts)

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{
			UID:    rec.ID + "@" + opts.UIDDomain,
			Start:  rec.Start,
			End:    rec.End,
			AllDay: rec.AllDay,
			Fields: Fields{
				Summary:     rec.Title,
				Location:    rec.Location,
				Description: rec.Description,
				URL:         rec.Link,
			},
		}

		if e.AllDay {
			if !e.End.After(e.Start) {
				e.End = e.Start.AddDate(0, 0, 1)
			}
			e.Fields.Start = e.Start.Format(dateFormat)
			e.Fields.End = e.End.Format(dateFormat)
		} else {
			if !e.End.After(e.Start) {
				e.End = e.Start.Add(opts.DefaultDuration)
			}
			e.Fields.Start = e.Start.UTC().Format(utcFormat)
			e.Fields.End = e.End.UTC().Format(utcFormat)
		}

		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].Start.Compare(entries[j].Start); c != 0 {
			return c < 0
		}
		return entries[i].UID < entries[j].UID
	})

	return entries
}

// Serialize renders records as an RFC 5545 document. The same records and
// options always produce byte-identical output regardless of input order.
//
// The document is parsed back before it is returned; a document that does not
// round-trip to the same events in the same order is a
// *SerializationInvariantError.
func Serialize(records []*event.Record, opts Options) (string, error) {
	opts = withDefaults(opts)
	entries := Entries(records, opts)

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.UID] {
			return "", &SerializationInvariantError{Reason: fmt.Sprintf("duplicate UID %s", e.UID)}
		}
		seen[e.UID] = true
	}

	cal := ics.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	for _, e := range entries {
		stamp := opts.Now
		if prev, ok := opts.Stamps[e.UID]; ok && !prev.At.IsZero() && prev.Fingerprint == e.Fields.Fingerprint() {
			stamp = prev.At
		}

		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetModifiedAt(stamp)
		if e.AllDay {
			ev.SetAllDayStartAt(e.Start)
			ev.SetAllDayEndAt(e.End)
		} else {
			ev.SetStartAt(e.Start)
			ev.SetEndAt(e.End)
		}
		ev.SetSummary(e.Fields.Summary)
		if e.Fields.Location != "" {
			ev.SetLocation(e.Fields.Location)
		}
		if e.Fields.Description != "" {
			ev.SetDescription(e.Fields.Description)
		}
		if e.Fields.URL != "" {
			ev.SetURL(e.Fields.URL)
		}
	}

	doc := cal.Serialize()
	if err := verify(doc, entries); err != nil {
		return "", err
	}
	return doc, nil
}

func verify(doc string, entries []Entry) error {
	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return &SerializationInvariantError{Reason: fmt.Sprintf("output does not parse: %v", err)}
	}

	events := cal.Events()
	if len(events) != len(entries) {
		return &SerializationInvariantError{
			Reason: fmt.Sprintf("wrote %d events, parsed %d", len(entries), len(events)),
		}
	}
	for i, ev := range events {
		if ev.Id() != entries[i].UID {
			return &SerializationInvariantError{
				Reason: fmt.Sprintf("event %d: wrote UID %s, parsed %s", i, entries[i].UID, ev.Id()),
			}
		}
	}
	return nil
}

func withDefaults(opts Options) Options {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	opts.Now = opts.Now.UTC().Truncate(time.Second)
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultDuration
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = DefaultUIDDomain
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	return opts
}
