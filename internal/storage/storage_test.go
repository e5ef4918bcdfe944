package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icnasac/icna-events/internal/calendar"
	"github.com/icnasac/icna-events/internal/event"
)

func testRecords(t *testing.T) []*event.Record {
	t.Helper()
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	return []*event.Record{
		{
			ID:          "iftar",
			Title:       "Community Iftar",
			Start:       time.Date(2025, time.March, 15, 19, 0, 0, 0, la),
			Location:    "ICNA Center, Sacramento",
			Description: "Open to all; bring a dish.\n\nMore info: https://icnasac.org/events/community-iftar/",
			Link:        "https://icnasac.org/events/community-iftar/",
		},
		{
			ID:     "youth",
			Title:  "Youth Night",
			Start:  time.Date(2025, time.March, 20, 0, 0, 0, 0, la),
			AllDay: true,
		},
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/calendars/icna_events.ics")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := filepath.Join(home, "calendars", "icna_events.ics")
	if s.Path() != want {
		t.Errorf("Path() = %q, want %q", s.Path(), want)
	}
	if _, err := os.Stat(filepath.Join(home, "calendars")); err != nil {
		t.Errorf("output directory not created: %v", err)
	}
}

func TestLoadStamps_Missing(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "icna_events.ics"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stamps, err := s.LoadStamps()
	if err != nil {
		t.Fatalf("LoadStamps() error = %v", err)
	}
	if stamps != nil {
		t.Errorf("LoadStamps() = %v, want nil for a missing file", stamps)
	}
}

func TestSaveAndLoadStamps(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "icna_events.ics"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	records := testRecords(t)
	opts := calendar.Options{Now: time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)}
	doc, err := calendar.Serialize(records, opts)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != doc {
		t.Error("saved document differs from input")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the calendar in %s, found %d entries", dir, len(entries))
	}

	stamps, err := s.LoadStamps()
	if err != nil {
		t.Fatalf("LoadStamps() error = %v", err)
	}
	if len(stamps) != 2 {
		t.Fatalf("expected 2 stamps, got %d", len(stamps))
	}

	for _, e := range calendar.Entries(records, opts) {
		got, ok := stamps[e.UID]
		if !ok {
			t.Errorf("no stamp for %s", e.UID)
			continue
		}
		if !got.At.Equal(opts.Now) {
			t.Errorf("stamp %s At = %v, want %v", e.UID, got.At, opts.Now)
		}
		if got.Fingerprint != e.Fields.Fingerprint() {
			t.Errorf("stamp %s fingerprint does not match the serialized fields", e.UID)
		}
	}
}

func TestSave_Replaces(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "icna_events.ics"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save("first"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save("second"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("document = %q, want %q", data, "second")
	}
}

func TestLoadStamps_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icna_events.ics")
	if err := os.WriteFile(path, []byte("this is not a calendar"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.LoadStamps(); err == nil {
		t.Error("LoadStamps() error = nil, want parse error")
	}
}
