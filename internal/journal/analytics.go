package journal

import (
	"sort"
	"time"
)

// MoodCount pairs a catalog mood with how often it was selected.
type MoodCount struct {
	Mood
	Count int
}

// TopMoods counts mood selections across entries whose day is on or
// after since, and returns up to limit moods ordered by count
// descending. Ties keep catalog order. Unknown mood keys are skipped.
func TopMoods(entries map[string]Entry, since time.Time, limit int) []MoodCount {
	cutoff := FormatDay(since)

	counts := make(map[string]int)
	for day, e := range entries {
		if !ValidDay(day) || day < cutoff {
			continue
		}
		for _, key := range e.Moods {
			counts[key]++
		}
	}

	out := make([]MoodCount, 0, len(counts))
	for _, m := range Moods {
		if n := counts[m.Key]; n > 0 {
			out = append(out, MoodCount{Mood: m, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
