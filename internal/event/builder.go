package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicate is returned by Builder.Build for an item identical to one
	// already built in the same run.
	ErrDuplicate = errors.New("duplicate event")

	// ErrMissingTitle is returned for items without a title.
	ErrMissingTitle = errors.New("event has no title")
)

// Builder turns raw listing items into records for a single run. It keeps
// identifiers unique within the run: identical items are rejected with
// ErrDuplicate, distinct items sharing title and date get a "-N" suffix.
type Builder struct {
	normalizer *Normalizer
	seen       map[string][]*Record // base ID -> records built under it
}

// NewBuilder creates a Builder that resolves dates with n.
func NewBuilder(n *Normalizer) *Builder {
	return &Builder{
		normalizer: n,
		seen:       make(map[string][]*Record),
	}
}

// Build normalizes raw into a Record. Errors are per-event and never fatal
// to the run; date failures wrap a *DateParseError.
func (b *Builder) Build(raw Raw) (*Record, error) {
	title := strings.Join(strings.Fields(raw.Title), " ")
	if title == "" {
		return nil, ErrMissingTitle
	}

	span, err := b.normalizer.Normalize(raw.Date, raw.Time)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", title, err)
	}

	rec := &Record{
		Title:    title,
		Start:    span.Start,
		End:      span.End,
		AllDay:   span.AllDay,
		Location: strings.TrimSpace(raw.Location),
		Link:     strings.TrimSpace(raw.Link),
	}
	rec.Description = describe(strings.TrimSpace(raw.Description), rec.Link)

	base := GenerateID(title, span.Start)
	prior := b.seen[base]
	for _, p := range prior {
		if p.sameAs(rec) {
			return nil, fmt.Errorf("event %q on %s: %w", title, span.Start.Format("2006-01-02"), ErrDuplicate)
		}
	}

	rec.ID = base
	if len(prior) > 0 {
		rec.ID = fmt.Sprintf("%s-%d", base, len(prior)+1)
	}
	b.seen[base] = append(prior, rec)

	return rec, nil
}

// describe appends the source link in the form "More info: <link>".
func describe(desc, link string) string {
	switch {
	case link == "":
		return desc
	case desc == "":
		return "More info: " + link
	default:
		return desc + "\n\nMore info: " + link
	}
}
