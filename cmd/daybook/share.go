package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/journal"
)

var shareCmd = &cobra.Command{
	Use:   "share [day]",
	Short: "Print a shareable text version of an entry",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		day, err := parseDayArg(argOrEmpty(args))
		if err != nil {
			fail("%v", err)
		}

		e, ok := a.store.Get(day)
		if !ok {
			fail("no entry for %s", day)
		}

		fmt.Println(journal.ShareText(day, e))
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
}
