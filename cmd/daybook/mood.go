package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/journal"
)

var moodCmd = &cobra.Command{
	Use:   "mood [key] [day]",
	Short: "Toggle a mood on a day's entry",
	Long: `Toggle a mood on an entry (today by default).

Selecting a mood that is already set removes it. An entry holds at
most three moods; selecting a fourth drops the oldest one. Run
"daybook mood list" to see the available moods.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		if !journal.KnownMood(key) {
			fail("unknown mood %q; see: daybook mood list", key)
		}

		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		day, err := parseDayArg(argOrEmpty(args[1:]))
		if err != nil {
			fail("%v", err)
		}

		a.store.SelectMood(day, key)

		e, _ := a.store.Get(day)
		m, _ := journal.MoodByKey(key)
		if containsKey(e.Moods, key) {
			fmt.Printf("Added %s %s to %s\n", m.Emoji, m.Label, styles.Accent.Render(day))
		} else {
			fmt.Printf("Removed %s %s from %s\n", m.Emoji, m.Label, styles.Accent.Render(day))
		}

		pushNow(a, day)
	},
}

var moodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available moods",
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range journal.Moods {
			fmt.Printf("  %s %-12s %s\n", m.Emoji, m.Key, styles.Muted.Render(m.Label))
		}
	},
}

var moodTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the most frequent moods over recent days",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		since := time.Now().AddDate(0, 0, -days)

		counts := journal.TopMoods(a.store.Snapshot(), since, limit)
		if len(counts) == 0 {
			fmt.Printf("No moods recorded in the last %d days\n", days)
			return
		}

		fmt.Printf("Top moods over the last %d days:\n", days)
		for _, c := range counts {
			fmt.Printf("  %s %-12s %d\n", c.Emoji, c.Label, c.Count)
		}
	},
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func init() {
	moodTopCmd.Flags().Int("days", 30, "window size in days")
	moodTopCmd.Flags().Int("limit", 5, "number of moods to show")

	moodCmd.AddCommand(moodListCmd)
	moodCmd.AddCommand(moodTopCmd)
	rootCmd.AddCommand(moodCmd)
}
