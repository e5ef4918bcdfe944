package calendar

// Changes summarizes how a generated document differs from the previous one.
type Changes struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether any event was added, updated or removed.
func (c Changes) Changed() bool {
	return c.New+c.Updated+c.Removed > 0
}

// Diff compares entries against the stamps of the previous document. A nil
// previous map means there was no previous document and every entry is new.
func Diff(previous map[string]Stamp, entries []Entry) Changes {
	var c Changes
	current := make(map[string]bool, len(entries))

	for _, e := range entries {
		current[e.UID] = true

		prev, exists := previous[e.UID]
		switch {
		case !exists:
			c.New++
		case prev.Fingerprint != e.Fields.Fingerprint():
			c.Updated++
		default:
			c.Unchanged++
		}
	}

	for uid := range previous {
		if !current[uid] {
			c.Removed++
		}
	}

	return c
}
