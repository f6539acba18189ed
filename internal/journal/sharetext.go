package journal

import (
	"fmt"
	"strings"
)

// ShareText renders an entry as plain text suitable for sharing:
// title, an optional mood line, the body, and the full date.
func ShareText(day string, e Entry) string {
	title := e.Title
	if title == "" {
		title = "Journal Entry"
	}

	date := day
	if t, err := ParseDay(day); err == nil {
		date = t.Format("Monday, January 2, 2006")
	}

	var moodLine string
	if len(e.Moods) > 0 {
		parts := make([]string, 0, len(e.Moods))
		for _, key := range e.Moods {
			if m, ok := MoodByKey(key); ok {
				parts = append(parts, fmt.Sprintf("%s %s", m.Emoji, m.Label))
			}
		}
		if len(parts) > 0 {
			moodLine = "Mood: " + strings.Join(parts, ", ")
		}
	}

	if moodLine != "" {
		return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, moodLine, e.Content, date)
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, e.Content, date)
}
