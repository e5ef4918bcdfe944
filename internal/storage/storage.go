package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/icnasac/icna-events/internal/calendar"
)

// Storage owns the published calendar file.
type Storage struct {
	path string
}

// New creates a Storage for the document at path, creating its directory.
func New(path string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Storage{
		path: path,
	}, nil
}

// Path returns the resolved document path.
func (s *Storage) Path() string {
	return s.path
}

// LoadStamps reads the previous document and returns the DTSTAMP and content
// fingerprint of each event, keyed by UID. A missing file yields a nil map.
func (s *Storage) LoadStamps() (map[string]calendar.Stamp, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening previous calendar: %w", err)
	}
	defer f.Close() // nolint:errcheck

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]calendar.Stamp{}, nil
		}
		return nil, fmt.Errorf("parsing previous calendar: %w", err)
	}

	stamps := make(map[string]calendar.Stamp)
	for _, ev := range cal.Events() {
		uid, err := ev.Props.Text(ical.PropUID)
		if err != nil || uid == "" {
			continue
		}
		at, err := ev.Props.DateTime(ical.PropDateTimeStamp, time.UTC)
		if err != nil {
			continue
		}

		fields := calendar.Fields{
			Summary:     text(ev.Props, ical.PropSummary),
			Start:       raw(ev.Props, ical.PropDateTimeStart),
			End:         raw(ev.Props, ical.PropDateTimeEnd),
			Location:    text(ev.Props, ical.PropLocation),
			Description: text(ev.Props, ical.PropDescription),
			URL:         raw(ev.Props, ical.PropURL),
		}
		stamps[uid] = calendar.Stamp{At: at.UTC(), Fingerprint: fields.Fingerprint()}
	}

	return stamps, nil
}

// Save replaces the document atomically: readers see either the previous
// file or the new one, never a partial write.
func (s *Storage) Save(doc string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck

	if _, err := tmp.WriteString(doc); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("writing calendar: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("syncing calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing calendar: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing calendar: %w", err)
	}

	return nil
}

func text(props ical.Props, name string) string {
	v, err := props.Text(name)
	if err != nil {
		return raw(props, name)
	}
	return v
}

func raw(props ical.Props, name string) string {
	if p := props.Get(name); p != nil {
		return p.Value
	}
	return ""
}
