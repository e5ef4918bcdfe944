package scraper

import (
	"errors"
	"os"
	"testing"

	"github.com/icnasac/icna-events/internal/event"
)

const listingURL = "https://icnasac.org/up-coming-events/"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func collect(t *testing.T, x *Extractor, markup string) []event.Raw {
	t.Helper()
	seq, err := x.Extract(listingURL, markup)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	var items []event.Raw
	for raw := range seq {
		items = append(items, raw)
	}
	return items
}

func TestExtract_ListingPage(t *testing.T) {
	items := collect(t, NewExtractor(ICNASacramento), loadFixture(t, "icna_page1.html"))

	// the untitled card and the navigation heading are not events
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}

	want := event.Raw{
		Title:       "Community Iftar",
		Date:        "March 15, 2025, 7:00 PM",
		Location:    "ICNA Center, 1234 Main St, Sacramento, CA",
		Description: "Join us for a community iftar; all are welcome, bring family & friends.",
		Link:        "https://icnasac.org/events/community-iftar/",
		Index:       0,
	}
	if items[0] != want {
		t.Errorf("Extract() item = %+v, want %+v", items[0], want)
	}
}

func TestExtract_OptionalFieldsMissing(t *testing.T) {
	items := collect(t, NewExtractor(ICNASacramento), loadFixture(t, "icna_page2.html"))

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Youth Night" {
		t.Errorf("Title = %q, want %q", items[0].Title, "Youth Night")
	}
	if items[0].Description != "" {
		t.Errorf("Description = %q, want empty", items[0].Description)
	}
	if items[0].Link != "https://icnasac.org/events/youth-night/" {
		t.Errorf("Link = %q, want absolute link unchanged", items[0].Link)
	}
}

func TestExtract_EmptyListing(t *testing.T) {
	items := collect(t, NewExtractor(ICNASacramento), loadFixture(t, "icna_empty.html"))
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestExtract_EmptyWithoutNotice(t *testing.T) {
	markup := `<main id="brx-content"><div class="brxe-container"></div></main>`

	// without an Empty rule a bare container is an empty listing
	rules := ICNASacramento
	rules.Empty = ""
	if items := collect(t, NewExtractor(rules), markup); len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}

	_, err := NewExtractor(ICNASacramento).Extract(listingURL, markup)
	var perr *ParseError
	if !errors.As(err, &perr) || !perr.NoItems {
		t.Errorf("Extract() error = %v, want *ParseError with NoItems", err)
	}
}

func TestExtract_Unrecognizable(t *testing.T) {
	tests := []struct {
		name        string
		markup      string
		wantNoItems bool
	}{
		{
			name:   "container missing",
			markup: loadFixture(t, "redesigned.html"),
		},
		{
			name: "items without titles",
			markup: `<main id="brx-content">
				<div class="brxe-tnvmtb"><h2>Community Iftar</h2></div>
				<div class="brxe-tnvmtb"><h2>Youth Night</h2></div>
			</main>`,
		},
		{
			name:        "item class renamed",
			markup:      loadFixture(t, "icna_renamed.html"),
			wantNoItems: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(ICNASacramento).Extract(listingURL, tt.markup)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Extract() error = %v, want *ParseError", err)
			}
			if perr.Rules != ICNASacramento.Name {
				t.Errorf("ParseError.Rules = %q, want %q", perr.Rules, ICNASacramento.Name)
			}
			if perr.NoItems != tt.wantNoItems {
				t.Errorf("ParseError.NoItems = %v, want %v", perr.NoItems, tt.wantNoItems)
			}
		})
	}
}

func TestExtract_CustomRules(t *testing.T) {
	rules := Rules{
		Name:  "event-cards",
		Item:  "article.event-card",
		Title: Field{Selector: ".event-card__title"},
		Date:  Field{Selector: "time", Attr: "datetime"},
	}

	items := collect(t, NewExtractor(rules), loadFixture(t, "redesigned.html"))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Date != "2025-03-15T19:00:00-07:00" {
		t.Errorf("Date = %q, want datetime attribute", items[0].Date)
	}
}

func TestExtract_StopsEarly(t *testing.T) {
	markup := `<main id="brx-content">
		<div class="brxe-tnvmtb"><h3 class="brxe-pgsofq">First</h3></div>
		<div class="brxe-tnvmtb"><h3 class="brxe-pgsofq">Second</h3></div>
		<div class="brxe-tnvmtb"><h3 class="brxe-pgsofq">Third</h3></div>
	</main>`

	seq, err := NewExtractor(ICNASacramento).Extract(listingURL, markup)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var seen []string
	for raw := range seq {
		seen = append(seen, raw.Title)
		if len(seen) == 2 {
			break
		}
	}
	if len(seen) != 2 || seen[0] != "First" || seen[1] != "Second" {
		t.Errorf("iteration = %v, want [First Second]", seen)
	}
}
