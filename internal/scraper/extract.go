package scraper

import (
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/icnasac/icna-events/internal/event"
)

// Field locates one value inside a listing item. An empty Attr means the
// element's text.
type Field struct {
	Selector string `koanf:"selector" json:"selector"`
	Attr     string `koanf:"attr" json:"attr,omitempty"`
}

// Rules maps listing markup to raw event fields. Container scopes the search
// so navigation and footers cannot produce items; an empty Container searches
// the whole document. Empty matches the notice a listing shows when it has no
// events; when set, a page without items must carry it to count as empty.
type Rules struct {
	Name        string `koanf:"name" json:"name"`
	Container   string `koanf:"container" json:"container"`
	Item        string `koanf:"item" json:"item"`
	Empty       string `koanf:"empty" json:"empty,omitempty"`
	Title       Field  `koanf:"title" json:"title"`
	Date        Field  `koanf:"date" json:"date"`
	Time        Field  `koanf:"time" json:"time"`
	Location    Field  `koanf:"location" json:"location"`
	Description Field  `koanf:"description" json:"description"`
	Link        Field  `koanf:"link" json:"link"`
}

// ICNASacramento matches the Bricks-built listing at DefaultBaseURL.
var ICNASacramento = Rules{
	Name:        "icnasac-bricks",
	Container:   "#brx-content",
	Item:        "div.brxe-tnvmtb",
	Empty:       "p.brxe-text-basic",
	Title:       Field{Selector: "h3.brxe-pgsofq"},
	Date:        Field{Selector: "span.brxe-bnvjah span.text"},
	Location:    Field{Selector: "span.brxe-oacqsb span.text"},
	Description: Field{Selector: "span.brxe-henoxh"},
	Link:        Field{Selector: "a.brxe-giwigq", Attr: "href"},
}

// Extractor pulls raw listing items out of page markup.
type Extractor struct {
	rules Rules
}

// NewExtractor creates an Extractor for rules.
func NewExtractor(rules Rules) *Extractor {
	return &Extractor{rules: rules}
}

// Rules returns the extraction rules in use.
func (x *Extractor) Rules() Rules {
	return x.rules
}

// Extract parses markup and returns its items in document order. Items
// without a title are skipped; Index counts the items that remain.
//
// A *ParseError is returned when the container is missing or when items are
// present but none of them has a title, both signs that the rules no longer
// fit the markup. A page with no items yields nothing if it shows the Empty
// notice (or no Empty rule is set); otherwise it is a *ParseError with
// NoItems set, since a renamed item class looks exactly like an empty page.
func (x *Extractor) Extract(pageURL, markup string) (iter.Seq[event.Raw], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, x.parseError(pageURL, fmt.Sprintf("parsing HTML: %v", err))
	}

	root := doc.Selection
	if x.rules.Container != "" {
		root = doc.Find(x.rules.Container)
		if root.Length() == 0 {
			return nil, x.parseError(pageURL, fmt.Sprintf("container %q not found", x.rules.Container))
		}
	}

	items := root.Find(x.rules.Item)
	if items.Length() == 0 && x.rules.Empty != "" && root.Find(x.rules.Empty).Length() == 0 {
		return nil, &ParseError{
			URL:     pageURL,
			Rules:   x.rules.Name,
			Reason:  fmt.Sprintf("no items match %q and the empty-listing notice %q is absent", x.rules.Item, x.rules.Empty),
			NoItems: true,
		}
	}
	if items.Length() > 0 && !x.anyTitled(items) {
		return nil, x.parseError(pageURL, fmt.Sprintf("%d items match %q but none has a title at %q",
			items.Length(), x.rules.Item, x.rules.Title.Selector))
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	return func(yield func(event.Raw) bool) {
		index := 0
		items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
			title := value(item, x.rules.Title)
			if title == "" {
				return true
			}
			raw := event.Raw{
				Title:       title,
				Date:        value(item, x.rules.Date),
				Time:        value(item, x.rules.Time),
				Location:    value(item, x.rules.Location),
				Description: value(item, x.rules.Description),
				Link:        resolve(base, value(item, x.rules.Link)),
				Index:       index,
			}
			index++
			return yield(raw)
		})
	}, nil
}

func (x *Extractor) anyTitled(items *goquery.Selection) bool {
	found := false
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		found = value(item, x.rules.Title) != ""
		return !found
	})
	return found
}

func (x *Extractor) parseError(pageURL, reason string) error {
	return &ParseError{URL: pageURL, Rules: x.rules.Name, Reason: reason}
}

func value(item *goquery.Selection, f Field) string {
	if f.Selector == "" {
		return ""
	}
	sel := item.Find(f.Selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if f.Attr != "" {
		v, _ := sel.Attr(f.Attr)
		return strings.TrimSpace(v)
	}
	return collapse(sel.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, link string) string {
	if link == "" || base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
