package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Sign in and start syncing",
	Long: `Sign in to the remote store.

The auth token is read from the terminal without echo, or from the
DAYBOOK_TOKEN environment variable in scripts. Signing in stores the
session under the journal directory; every later command syncs with
it until daybook logout.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		token := os.Getenv("DAYBOOK_TOKEN")
		if token == "" {
			fmt.Print("Token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				fail("failed to read token: %v", err)
			}
			token = string(raw)
		}

		if err := a.sessions.SignIn(args[0], token); err != nil {
			fail("%v", err)
		}
		fmt.Printf("Signed in as %s\n", styles.Accent.Render(args[0]))

		// A fresh login usually means a fresh device; sync right away.
		if a.syncer != nil {
			if err := a.syncer.PullAll(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "note: initial pull failed: %v\n", err)
			}
			if err := a.syncer.PushAll(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "note: initial push failed: %v\n", err)
			}
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and stop syncing",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		if a.sessions.Current() == nil {
			fmt.Println("Already signed out")
			return
		}
		if err := a.sessions.SignOut(); err != nil {
			fail("%v", err)
		}
		fmt.Println("Signed out. Entries stay readable offline.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
