// Package journal defines the journal entry data model.
//
// An Entry is keyed by its calendar day, a YYYY-MM-DD string in local
// time. There is exactly one entry per day; the model never splits or
// merges days. Fields are flat with last-write-wins semantics: the
// updated_at timestamp resolves conflicts between devices.
package journal

import (
	"fmt"
	"time"
)

// DayLayout is the canonical format of a day key.
const DayLayout = "2006-01-02"

// MaxMoodSelections caps how many moods an entry can carry.
const MaxMoodSelections = 3

// Attachment is a file linked to an entry. Type is a MIME type or a
// coarse category such as "image" or "application".
type Attachment struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Entry is one journal entry for a single calendar day.
//
// RemoteID is empty until the entry has been created in the remote
// table; the sync engine treats an entry without a RemoteID as an
// insert, never an update. Synced is true iff the local copy is known
// to equal the last pushed or pulled remote copy.
type Entry struct {
	Content string       `json:"content"`
	Title   string       `json:"title"`
	Moods   []string     `json:"moods"`
	Files   []Attachment `json:"files,omitempty"`

	RemoteID  string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Synced    bool      `json:"synced"`
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	if e.Moods != nil {
		c.Moods = append([]string(nil), e.Moods...)
	}
	if e.Files != nil {
		c.Files = append([]Attachment(nil), e.Files...)
	}
	return c
}

// Validate checks the entry's invariants.
func (e Entry) Validate() error {
	if len(e.Moods) > MaxMoodSelections {
		return fmt.Errorf("at most %d moods allowed (got %d)", MaxMoodSelections, len(e.Moods))
	}
	for _, key := range e.Moods {
		if key == "" {
			return fmt.Errorf("mood key must not be empty")
		}
	}
	return nil
}

// FormatDay renders t as a day key in local time.
func FormatDay(t time.Time) string {
	return t.Local().Format(DayLayout)
}

// Today returns the day key for the current local date.
func Today() string {
	return FormatDay(time.Now())
}

// ValidDay reports whether day is a well-formed day key.
func ValidDay(day string) bool {
	if len(day) != len(DayLayout) {
		return false
	}
	_, err := time.ParseInLocation(DayLayout, day, time.Local)
	return err == nil
}

// ParseDay parses a day key into a local-time midnight timestamp.
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return t, nil
}

// ToggleMood returns the mood list after selecting key.
//
// Selecting a mood already present removes exactly it. Selecting a new
// mood while at the cap evicts the oldest selection and appends the new
// one at the end. Insertion order is display order.
func ToggleMood(moods []string, key string) []string {
	for i, k := range moods {
		if k == key {
			out := make([]string, 0, len(moods)-1)
			out = append(out, moods[:i]...)
			return append(out, moods[i+1:]...)
		}
	}
	if len(moods) >= MaxMoodSelections {
		out := make([]string, 0, MaxMoodSelections)
		out = append(out, moods[len(moods)-MaxMoodSelections+1:]...)
		return append(out, key)
	}
	out := make([]string, 0, len(moods)+1)
	out = append(out, moods...)
	return append(out, key)
}
