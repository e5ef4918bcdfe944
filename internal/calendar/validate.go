package calendar

import (
	"fmt"
	"io"

	ics "github.com/arran4/golang-ical"
)

// Validate parses a document and checks that every event carries a UID,
// DTSTART and SUMMARY and that UIDs are unique. It returns the number of
// events found; problems are reported as a *ValidationError.
func Validate(r io.Reader) (int, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return 0, fmt.Errorf("parsing calendar: %w", err)
	}

	events := cal.Events()
	seen := make(map[string]int, len(events))
	var problems []string

	for i, ev := range events {
		uid := ev.Id()
		if uid == "" {
			problems = append(problems, fmt.Sprintf("event %d: missing UID", i))
		} else if first, dup := seen[uid]; dup {
			problems = append(problems, fmt.Sprintf("event %d: UID %s already used by event %d", i, uid, first))
		} else {
			seen[uid] = i
		}

		if ev.GetProperty(ics.ComponentPropertyDtStart) == nil {
			problems = append(problems, fmt.Sprintf("event %d: missing DTSTART", i))
		}
		if ev.GetProperty(ics.ComponentPropertySummary) == nil {
			problems = append(problems, fmt.Sprintf("event %d: missing SUMMARY", i))
		}
	}

	if len(problems) > 0 {
		return len(events), &ValidationError{Problems: problems}
	}
	return len(events), nil
}
