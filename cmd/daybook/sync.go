package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending entries and pull remote changes",
	Long: `Run one full sync cycle against the remote store.

Pushes every locally-edited entry that has not reached the remote yet,
then pulls the remote table and applies rows that are newer than the
local copy. Entries with pending local edits are never overwritten by
a pull.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		if err := a.requireSyncer(); err != nil {
			fail("%v", err)
		}
		if a.sessions.Current() == nil {
			fail("not signed in; run: daybook login <user-id>")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		start := time.Now()
		if err := a.syncer.PushAll(ctx); err != nil {
			fmt.Println(styles.Error.Render("Some pushes failed: ") + err.Error())
		}
		if err := a.syncer.PullAll(ctx); err != nil {
			fail("%v", err)
		}

		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		var pending int
		for _, e := range a.store.Snapshot() {
			if !e.Synced {
				pending++
			}
		}

		fmt.Printf("\nEntries: %d (%d pending sync)\n", a.store.Len(), pending)

		sess := a.sessions.Current()
		if sess == nil {
			fmt.Println("Session: signed out")
		} else {
			fmt.Printf("Session: %s\n", sess.UserID)
		}

		if a.syncer == nil {
			fmt.Println("Remote:  not configured")
			fmt.Println()
			return
		}
		fmt.Printf("Remote:  %s\n", a.cfg.RemoteDSN)

		if sess != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if n, err := a.db.CountForUser(ctx, sess.UserID); err == nil {
				fmt.Printf("Remote entries: %d\n", n)
			}
		}
		fmt.Println()
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
