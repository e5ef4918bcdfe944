package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // the region's DST rules must not depend on the host's zoneinfo
)

// DefaultTimezone is the calendar region the source site publishes in.
const DefaultTimezone = "America/Los_Angeles"

// Span is an event's normalized time range in the local calendar region.
type Span struct {
	Start  time.Time
	End    time.Time // zero when the source gives no end
	AllDay bool
}

// DateParseError reports date or time text no recognized pattern accepts.
type DateParseError struct {
	Date   string
	Time   string
	Reason string
}

func (e *DateParseError) Error() string {
	if e.Time != "" {
		return fmt.Sprintf("parsing date %q time %q: %s", e.Date, e.Time, e.Reason)
	}
	return fmt.Sprintf("parsing date %q: %s", e.Date, e.Reason)
}

const (
	clock12 = `(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?\s?m\b\.?`
	clock24 = `([01]?\d|2[0-3]):([0-5]\d)`
)

var (
	zoneRe      = regexp.MustCompile(`\b(?:[PMCE][SD]T|[PMCE]T)\b`)
	rangeSepRe  = regexp.MustCompile(`\s*[–—]\s*|\s+-\s+|\s+(?i:to|until|through)\s+`)
	timeSepRe   = regexp.MustCompile(`\s*[–—-]\s*|\s+(?i:to)\s+`)
	clockRe     = regexp.MustCompile(`(?i)\b(?:` + clock12 + `|` + clock24 + `|(noon|midnight))`)
	clockOnlyRe = regexp.MustCompile(`(?i)^(?:` + clock12 + `|` + clock24 + `|(noon|midnight)|(\d{1,2})(?::([0-5]\d))?)$`)
	timeRangeRe = regexp.MustCompile(`(?i)\b\d{1,2}(?::[0-5]\d)?(?:\s*[ap]\.?\s?m\b\.?)?\s*(?:[–—-]|\bto\b)\s*\d{1,2}(?::[0-5]\d)?\s*[ap]\.?\s?m\b\.?` +
		`|\b(?:[01]?\d|2[0-3]):[0-5]\d\s*(?:[–—-]|\bto\b)\s*(?:[01]?\d|2[0-3]):[0-5]\d\b`)
	isoRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{1,2}:\d{2}`)
	fillerRe   = regexp.MustCompile(`(?i)\b(?:at|from|on)\b|@`)
	weekdayRe  = regexp.MustCompile(`(?i)^(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?\s+`)
	ordinalRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	monthDotRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.`)
	septRe     = regexp.MustCompile(`(?i)\bsept\b`)
	untimedRe  = regexp.MustCompile(`(?i)^(?:all[\s-]?day|tba|tbd|tbc)$`)
	dayOnlyRe  = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?$`)
)

var dateLayouts = []string{
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"2006/1/2",
	"1/2/2006",
	"1/2/06",
}

// yearlessLayouts resolve to the current year of the normalizer's clock.
var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
	"1/2",
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalizer converts free-form listing date and time text into instants
// anchored to a single IANA timezone. The UTC offset is whatever the zone's
// rules say for that calendar date, so events on either side of a daylight
// saving transition resolve to different offsets.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// NewNormalizer creates a Normalizer for loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{loc: loc, now: time.Now}
}

// LoadNormalizer creates a Normalizer for the named IANA zone.
func LoadNormalizer(zone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", zone, err)
	}
	return NewNormalizer(loc), nil
}

// WithClock sets the clock used to pick the year for dates written without one.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Location returns the calendar region.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize parses dateText and the optional timeText into a Span.
//
// dateText may carry the whole schedule, as the source site renders it:
//
//	October 31, 2025, 6:00 PM – 9:00 PM PDT
//	March 15, 2025, 11:30 PM – Mar 16, 2025, 7:30 AM
//
// Zone abbreviations are ignored. A date without a time is an all-day event.
// timeText, when present, replaces any time found in dateText.
func (n *Normalizer) Normalize(dateText, timeText string) (Span, error) {
	fail := func(reason string) (Span, error) {
		return Span{}, &DateParseError{Date: dateText, Time: timeText, Reason: reason}
	}

	text := clean(dateText)
	if text == "" {
		return fail("empty date")
	}

	startText, endText := splitRange(text)
	start, ok := n.parsePoint(startText, n.now().In(n.loc).Year())
	if !ok {
		return fail("unrecognized date format")
	}

	endClock := start.end
	var endDay *point
	if endText != "" {
		if c, ok := parseClock(endText); ok && !c.bare {
			endClock = &c
			if start.start != nil {
				s := inheritMeridiem(*start.start, c)
				start.start = &s
			}
		} else if p, ok := n.parsePoint(endText, start.year); ok {
			endDay = &p
		} else if p, ok := parseDayEnd(endText, start); ok {
			// "March 15 - 16, 2025"
			endDay = &p
		}
	}
	if endDay != nil {
		alignYears(&start, endDay)
	}

	if tt := clean(timeText); tt != "" && !untimedRe.MatchString(tt) {
		c, e, ok := parseClockRange(tt)
		if !ok {
			return fail("unrecognized time format")
		}
		start.start = &c
		if e != nil {
			endClock = e
		}
	}

	day := time.Date(start.year, start.month, start.day, 0, 0, 0, 0, n.loc)
	if start.start == nil {
		span := Span{Start: day, AllDay: true}
		if endDay != nil {
			last := time.Date(endDay.year, endDay.month, endDay.day, 0, 0, 0, 0, n.loc)
			if last.After(day) {
				span.End = last.AddDate(0, 0, 1)
			}
		}
		return span, nil
	}

	h, m := start.start.hm()
	begin := n.wall(start.year, start.month, start.day, h, m)
	span := Span{Start: begin}

	var end time.Time
	switch {
	case endDay != nil && endDay.start != nil:
		eh, em := endDay.start.hm()
		end = n.wall(endDay.year, endDay.month, endDay.day, eh, em)
	case endDay != nil:
		end = time.Date(endDay.year, endDay.month, endDay.day+1, 0, 0, 0, 0, n.loc)
	case endClock != nil:
		eh, em := endClock.hm()
		end = n.wall(start.year, start.month, start.day, eh, em)
		if end.Before(begin) {
			// overnight: "11:30 PM – 2:00 AM"
			end = n.wall(start.year, start.month, start.day+1, eh, em)
		}
	}
	if end.After(begin) {
		span.End = end
	}

	return span, nil
}

// wall returns the instant a local clock shows h:m on the given date. A time
// skipped by a daylight-saving jump ("2:30 AM" on spring-forward day) lands
// the same distance past the jump, as clocks that were not moved would read.
func (n *Normalizer) wall(year int, month time.Month, day, h, m int) time.Time {
	t := time.Date(year, month, day, h, m, 0, 0, n.loc)
	if t.Hour() == h && t.Minute() == m {
		return t
	}
	_, before := t.Add(-12 * time.Hour).Zone()
	return time.Date(year, month, day, h, m, 0, 0, time.FixedZone("", before)).In(n.loc)
}

// alignYears lets a range whose start omits the year borrow it from the
// end ("Jan 2 – Jan 4, 2026"), stepping back a year when the start would
// otherwise follow the end ("Dec 30 – Jan 2, 2026"). An end without a year
// that falls before its start belongs to the following year.
func alignYears(start, end *point) {
	switch {
	case !start.hasYear && end.hasYear:
		start.year = end.year
		if start.date().After(end.date()) {
			start.year--
		}
	case !end.hasYear && end.date().Before(start.date()):
		end.year = start.year + 1
	}
}

// parseDayEnd reads the end of a range that gives only a day and perhaps a
// year, taking the month from start.
func parseDayEnd(text string, start point) (point, bool) {
	rest, c, _ := takeClocks(strings.Trim(text, " ,"))
	m := dayOnlyRe.FindStringSubmatch(strings.Trim(rest, " ,"))
	if m == nil {
		return point{}, false
	}

	p := point{year: start.year, month: start.month, day: atoi(m[1]), start: c}
	if m[2] != "" {
		p.year, p.hasYear = atoi(m[2]), true
	}
	if d := p.date(); d.Day() != p.day || d.Month() != p.month {
		return point{}, false
	}
	return p, true
}

// clock is a time of day as written; hm resolves the meridiem.
type clock struct {
	hour, min int
	meridiem  byte // 'a', 'p' or 0
	bare      bool // a number with neither meridiem nor colon
}

func (c clock) hm() (int, int) {
	h := c.hour
	switch c.meridiem {
	case 'p':
		if h < 12 {
			h += 12
		}
	case 'a':
		if h == 12 {
			h = 0
		}
	}
	return h, c.min
}

func (c clock) valid() bool {
	if c.meridiem != 0 {
		return c.hour >= 1 && c.hour <= 12
	}
	return c.hour >= 0 && c.hour <= 23
}

// point is one side of a range: a calendar date plus optional clock times.
type point struct {
	year    int
	month   time.Month
	day     int
	hasYear bool
	start   *clock
	end     *clock
}

func (p point) date() time.Time {
	return time.Date(p.year, p.month, p.day, 0, 0, 0, 0, time.UTC)
}

func (n *Normalizer) parsePoint(text string, defaultYear int) (point, bool) {
	text = strings.Trim(text, " ,")

	if isoRe.MatchString(text) {
		t, ok := n.parseISO(text)
		if !ok {
			return point{}, false
		}
		return point{
			year:    t.Year(),
			month:   t.Month(),
			day:     t.Day(),
			hasYear: true,
			start:   &clock{hour: t.Hour(), min: t.Minute()},
		}, true
	}

	var p point
	text, p.start, p.end = takeClocks(text)

	y, m, d, hasYear, ok := parseDate(text, defaultYear)
	if !ok {
		return point{}, false
	}
	p.year, p.month, p.day, p.hasYear = y, m, d, hasYear
	return p, true
}

// takeClocks removes the first time range, or failing that the first time,
// from text.
func takeClocks(text string) (string, *clock, *clock) {
	if loc := timeRangeRe.FindStringIndex(text); loc != nil {
		if start, end, ok := parseClockRange(text[loc[0]:loc[1]]); ok {
			return text[:loc[0]] + " " + text[loc[1]:], &start, end
		}
	}
	if loc := clockRe.FindStringIndex(text); loc != nil {
		if c, ok := parseClock(text[loc[0]:loc[1]]); ok {
			return text[:loc[0]] + " " + text[loc[1]:], &c, nil
		}
	}
	return text, nil, nil
}

func (n *Normalizer) parseISO(text string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if strings.Contains(layout, "Z07") {
			if t, err := time.Parse(layout, text); err == nil {
				return t.In(n.loc), true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, text, n.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDate(text string, defaultYear int) (int, time.Month, int, bool, bool) {
	s := fillerRe.ReplaceAllString(text, " ")
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = weekdayRe.ReplaceAllString(s, "")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = monthDotRe.ReplaceAllString(s, "$1")
	s = septRe.ReplaceAllString(s, "Sep")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return 0, 0, 0, false, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), t.Month(), t.Day(), true, true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return defaultYear, t.Month(), t.Day(), false, true
		}
	}
	return 0, 0, 0, false, false
}

func parseClock(s string) (clock, bool) {
	m := clockOnlyRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return clock{}, false
	}

	var c clock
	switch {
	case m[1] != "":
		c.hour, _ = strconv.Atoi(m[1])
		c.min = atoi(m[2])
		c.meridiem = strings.ToLower(m[3])[0]
	case m[4] != "":
		c.hour, _ = strconv.Atoi(m[4])
		c.min = atoi(m[5])
	case m[6] != "":
		c = clock{hour: 12, meridiem: 'a'}
		if strings.EqualFold(m[6], "noon") {
			c.meridiem = 'p'
		}
	default:
		c.hour, _ = strconv.Atoi(m[7])
		c.min = atoi(m[8])
		c.bare = m[8] == ""
	}
	return c, c.valid()
}

// parseClockRange parses "7:00 PM", "7:00 PM - 9:00 PM" or "7-9 PM".
func parseClockRange(s string) (clock, *clock, bool) {
	if loc := timeSepRe.FindStringIndex(s); loc != nil && loc[0] > 0 {
		end, ok := parseClock(s[loc[1]:])
		if !ok || end.bare {
			return clock{}, nil, false
		}
		start, ok := parseClock(s[:loc[0]])
		if !ok {
			return clock{}, nil, false
		}
		start = inheritMeridiem(start, end)
		return start, &end, true
	}

	c, ok := parseClock(s)
	return c, nil, ok
}

// inheritMeridiem gives "7" in "7-9 PM" the end's meridiem, falling back to
// AM when that would put the start after the end ("11-1 PM").
func inheritMeridiem(start, end clock) clock {
	if start.meridiem != 0 || end.meridiem == 0 || start.hour > 12 {
		return start
	}
	start.meridiem = end.meridiem
	start.bare = false
	sh, sm := start.hm()
	eh, em := end.hm()
	if sh*60+sm > eh*60+em && end.meridiem == 'p' {
		start.meridiem = 'a'
	}
	return start
}

// splitRange splits text at the first range separator that is not part of
// a time range such as "6:00 PM – 9:00 PM".
func splitRange(s string) (string, string) {
	protected := timeRangeRe.FindAllStringIndex(s, -1)
	for _, sep := range rangeSepRe.FindAllStringIndex(s, -1) {
		if within(sep, protected) {
			continue
		}
		return strings.TrimSpace(s[:sep[0]]), strings.TrimSpace(s[sep[1]:])
	}
	return s, ""
}

func within(span []int, ranges [][]int) bool {
	for _, r := range ranges {
		if span[0] >= r[0] && span[1] <= r[1] {
			return true
		}
	}
	return false
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = zoneRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
