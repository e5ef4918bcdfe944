package calendar

import (
	"fmt"
	"strings"
)

// SerializationInvariantError reports a generated document that does not
// parse back to the events that were written.
type SerializationInvariantError struct {
	Reason string
}

func (e *SerializationInvariantError) Error() string {
	return "calendar invariant violated: " + e.Reason
}

// ValidationError lists the problems found in an existing document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid calendar: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid calendar: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}
