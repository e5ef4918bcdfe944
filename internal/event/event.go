package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs used as event identifiers.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://icnasac.org/up-coming-events/"))

// Raw is one listing item as extracted from a page, before any interpretation.
// Only Title is guaranteed to be non-empty.
type Raw struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	Page        int    `json:"page"`
	Index       int    `json:"index"`
}

// Record is a normalized event with a stable identifier
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end,omitempty"` // zero when the source gives no end
	AllDay      bool      `json:"all_day,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
}

// HasEnd reports whether the source supplied an end for this event.
func (r *Record) HasEnd() bool {
	return !r.End.IsZero()
}

// sameAs reports whether two records carry identical content, ignoring ID.
func (r *Record) sameAs(other *Record) bool {
	return r.Title == other.Title &&
		r.Start.Equal(other.Start) &&
		r.End.Equal(other.End) &&
		r.AllDay == other.AllDay &&
		r.Location == other.Location &&
		r.Description == other.Description &&
		r.Link == other.Link
}

// NormalizeTitle lowercases a title and collapses its whitespace
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// GenerateID creates a deterministic ID from the normalized title and the
// local calendar date of start. Time of day and location do not contribute,
// so re-worded times on the source page keep the same identifier.
func GenerateID(title string, start time.Time) string {
	name := NormalizeTitle(title) + "|" + start.Format("2006-01-02")
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
