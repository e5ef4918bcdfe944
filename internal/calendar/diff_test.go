package calendar

import (
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	entries := Entries(testRecords(), testOptions())
	stampsFor := func(uids ...string) map[string]Stamp {
		m := make(map[string]Stamp)
		for _, e := range entries {
			for _, uid := range uids {
				if e.UID == uid {
					m[uid] = Stamp{At: generated, Fingerprint: e.Fields.Fingerprint()}
				}
			}
		}
		return m
	}

	tests := []struct {
		name     string
		previous map[string]Stamp
		want     Changes
	}{
		{
			name:     "no previous document",
			previous: nil,
			want:     Changes{New: 3},
		},
		{
			name:     "nothing changed",
			previous: stampsFor("iftar@icnasac.org", "youth@icnasac.org", "halaqa@icnasac.org"),
			want:     Changes{Unchanged: 3},
		},
		{
			name: "one new, one updated, one removed",
			previous: func() map[string]Stamp {
				m := stampsFor("iftar@icnasac.org", "youth@icnasac.org")
				m["youth@icnasac.org"] = Stamp{At: generated, Fingerprint: "old"}
				m["eid@icnasac.org"] = Stamp{At: generated.Add(-time.Hour), Fingerprint: "gone"}
				return m
			}(),
			want: Changes{New: 1, Updated: 1, Removed: 1, Unchanged: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.previous, entries)
			if got != tt.want {
				t.Errorf("Diff() = %+v, want %+v", got, tt.want)
			}
			if got.Changed() != (tt.want.New+tt.want.Updated+tt.want.Removed > 0) {
				t.Errorf("Changed() = %v for %+v", got.Changed(), got)
			}
		})
	}
}

func TestFields_Fingerprint(t *testing.T) {
	a := Fields{Summary: "Community Iftar", Start: "20250316T020000Z", End: "20250316T040000Z"}
	b := a
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint() should be deterministic")
	}

	b.Location = "ICNA Center"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint() should change with content")
	}

	// field boundaries matter
	c := Fields{Summary: "ab", Start: "c"}
	d := Fields{Summary: "a", Start: "bc"}
	if c.Fingerprint() == d.Fingerprint() {
		t.Error("Fingerprint() should not collide across field boundaries")
	}
}
