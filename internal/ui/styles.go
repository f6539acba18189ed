// Package ui renders daybook's terminal output and prompts.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/daybook-sh/daybook/internal/journal"
)

// Styles is the palette used across the CLI.
type Styles struct {
	Title  lipgloss.Style
	Accent lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	Mood   lipgloss.Style
}

// DefaultStyles picks a palette suited to the terminal background.
func DefaultStyles() Styles {
	accent := lipgloss.Color("212")
	muted := lipgloss.Color("244")
	if !termenv.HasDarkBackground() {
		accent = lipgloss.Color("205")
		muted = lipgloss.Color("240")
	}
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true),
		Accent: lipgloss.NewStyle().Foreground(accent),
		Muted:  lipgloss.NewStyle().Foreground(muted),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Mood:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	}
}

// RenderEntry formats one entry for display.
func (s Styles) RenderEntry(day string, e journal.Entry) string {
	var b strings.Builder

	title := e.Title
	if title == "" {
		title = "Journal Entry"
	}
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(s.Muted.Render(day))
	if !e.Synced {
		b.WriteString(s.Muted.Render("  (not synced)"))
	}
	b.WriteString("\n")

	if len(e.Moods) > 0 {
		b.WriteString(s.Mood.Render("Mood: " + moodLine(e.Moods)))
		b.WriteString("\n")
	}

	if e.Content != "" {
		b.WriteString("\n")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}

	for _, f := range e.Files {
		b.WriteString(s.Muted.Render(fmt.Sprintf("  attached: %s (%s)", f.Name, f.Type)))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderListLine formats one entry for the list view.
func (s Styles) RenderListLine(day string, e journal.Entry) string {
	marker := s.Accent.Render("●")
	if !e.Synced {
		marker = s.Muted.Render("○")
	}

	summary := e.Title
	if summary == "" {
		summary = firstLine(e.Content)
	}

	line := fmt.Sprintf("%s %s  %s", marker, s.Accent.Render(day), summary)
	if len(e.Moods) > 0 {
		line += "  " + s.Mood.Render(moodEmojis(e.Moods))
	}
	return line
}

func moodLine(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if m, ok := journal.MoodByKey(k); ok {
			parts = append(parts, m.Emoji+" "+m.Label)
		}
	}
	return strings.Join(parts, ", ")
}

func moodEmojis(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		if m, ok := journal.MoodByKey(k); ok {
			b.WriteString(m.Emoji)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
