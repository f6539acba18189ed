package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/daybook-sh/daybook/internal/conflict"
)

// PromptConflict shows both sides of a pending conflict and asks for a
// resolution. stored and supplied are displayed in full so the user
// can compare before choosing.
func PromptConflict(s Styles, day, stored, supplied string) (conflict.Action, error) {
	fmt.Println(s.Title.Render("Conflicting content for " + day))
	fmt.Println()
	fmt.Println(s.Muted.Render("Saved entry:"))
	fmt.Println(stored)
	fmt.Println()
	fmt.Println(s.Muted.Render("Incoming content:"))
	fmt.Println(supplied)
	fmt.Println()

	action := conflict.KeepExisting
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[conflict.Action]().
			Title("How should this be resolved?").
			Options(
				huh.NewOption("Keep existing entry", conflict.KeepExisting),
				huh.NewOption("Replace with incoming content", conflict.Override),
				huh.NewOption("Append incoming content", conflict.Append),
			).
			Value(&action),
	))

	if err := form.Run(); err != nil {
		return conflict.KeepExisting, fmt.Errorf("conflict prompt failed: %w", err)
	}
	return action, nil
}
