package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/daemon"
	"github.com/daybook-sh/daybook/internal/logging"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon (foreground)",
	Long: `Run the background process that keeps this journal converging.

The daemon:
  1. Watches the local store and pushes edits after a quiet period
  2. Pulls remote changes on an interval
  3. Subscribes to the realtime change feed while signed in
  4. Attaches files dropped into the attachment folder to today's entry

Press Ctrl+C to stop. For production use, run it under a process
manager.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		if err := a.requireSyncer(); err != nil {
			fail("%v", err)
		}

		if err := os.MkdirAll(a.cfg.AttachDir, 0o755); err != nil {
			fail("failed to create attachment folder: %v", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if a.listener != nil {
			a.listener.Bind()
			if err := a.listener.Start(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "note: change feed unavailable: %v\n", err)
			}
		}

		d, err := daemon.New(a.store, a.syncer, &daemon.Config{
			AutoSaveDelay: a.cfg.AutoSaveDelay,
			PullInterval:  a.cfg.PullInterval,
			AttachDir:     a.cfg.AttachDir,
			Logger:        logging.New("[daemon] ", a.cfg.LogFile),
		})
		if err != nil {
			fail("%v", err)
		}

		fmt.Printf("Daemon running for %s\n", a.cfg.JournalDir)
		fmt.Printf("   Attachment folder: %s\n", a.cfg.AttachDir)
		fmt.Println("\nPress Ctrl+C to stop")

		if err := d.Start(ctx); err != nil {
			fail("daemon stopped with error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
