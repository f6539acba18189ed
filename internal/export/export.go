// Package export moves journals in and out of the local store as
// portable files. JSONL is the interchange format (one entry per
// line); YAML is offered for human-readable archives.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/daybook-sh/daybook/internal/journal"
	"github.com/daybook-sh/daybook/internal/store"
)

// Record is one exported entry keyed by its day.
type Record struct {
	Day   string        `json:"day" yaml:"day"`
	Entry journal.Entry `json:"entry" yaml:"entry"`
}

// sortedRecords flattens a snapshot into day-ordered records.
func sortedRecords(entries map[string]journal.Entry) []Record {
	records := make([]Record, 0, len(entries))
	for day, e := range entries {
		records = append(records, Record{Day: day, Entry: e})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Day < records[j].Day })
	return records
}

// WriteJSONL writes entries to w, one JSON record per line, ordered by
// day.
func WriteJSONL(w io.Writer, entries map[string]journal.Entry) error {
	enc := json.NewEncoder(w)
	for _, rec := range sortedRecords(entries) {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", rec.Day, err)
		}
	}
	return nil
}

// ReadJSONL parses records written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var records []Record
	dec := json.NewDecoder(r)
	line := 0

	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("invalid record at line %d: %w", line+1, err)
		}
		line++

		if !journal.ValidDay(rec.Day) {
			return nil, fmt.Errorf("invalid day %q at line %d", rec.Day, line)
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteYAML writes entries to w as a day-ordered YAML list.
func WriteYAML(w io.Writer, entries map[string]journal.Entry) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	if err := enc.Encode(sortedRecords(entries)); err != nil {
		return fmt.Errorf("failed to write YAML export: %w", err)
	}
	return nil
}

// ReadYAML parses a list written by WriteYAML.
func ReadYAML(r io.Reader) ([]Record, error) {
	var records []Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid YAML export: %w", err)
	}
	for _, rec := range records {
		if !journal.ValidDay(rec.Day) {
			return nil, fmt.Errorf("invalid day %q", rec.Day)
		}
	}
	return records, nil
}

// Import merges records into the store through its mutation API, so
// imported entries land unsynced and the sync engine pushes them like
// any other edit. Existing days are overwritten. Returns the number of
// entries imported.
func Import(st *store.Store, records []Record) int {
	for _, rec := range records {
		e := rec.Entry
		st.SetEntry(rec.Day, e.Content, e.Title, e.Moods, e.Files)
	}
	return len(records)
}
