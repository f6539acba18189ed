// Command daybook is an offline-first journal that syncs to a remote
// store when a session is signed in.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/config"
	"github.com/daybook-sh/daybook/internal/journal"
	"github.com/daybook-sh/daybook/internal/logging"
	"github.com/daybook-sh/daybook/internal/realtime"
	"github.com/daybook-sh/daybook/internal/remote"
	"github.com/daybook-sh/daybook/internal/session"
	"github.com/daybook-sh/daybook/internal/store"
	"github.com/daybook-sh/daybook/internal/syncer"
	"github.com/daybook-sh/daybook/internal/ui"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "daybook",
	Short:   "Offline-first personal journal with remote sync",
	Version: version,
	Long: `daybook keeps a personal journal on disk and opportunistically syncs
it to a remote store.

Entries are saved locally first and always readable offline. When a
session is signed in (daybook login), edits are pushed to the remote
table, changes from other devices are pulled back, and a realtime
change feed keeps devices converging without polling.`,
}

var styles = ui.DefaultStyles()

func init() {
	rootCmd.PersistentFlags().String("dir", "", "journal directory (default ~/.daybook)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the resources most commands need.
type app struct {
	cfg      *config.Config
	store    *store.Store
	sessions *session.FileProvider
	logger   *log.Logger

	db       *remote.DB
	listener *realtime.Listener
	syncer   syncer.Syncer
}

// openApp loads config and opens the local store and session file.
// Remote resources are only opened when a remote DSN is configured.
func openApp(cmd *cobra.Command) (*app, error) {
	dir, _ := cmd.Flags().GetString("dir")
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	logger := logging.New("[daybook] ", cfg.LogFile)

	st, err := store.Open(filepath.Join(cfg.JournalDir, "store"), logger)
	if err != nil {
		return nil, err
	}

	sessions, err := session.OpenFile(filepath.Join(cfg.JournalDir, "session.json"))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, sessions: sessions, logger: logger}

	if cfg.RemoteDSN != "" {
		db, err := remote.Open(remoteDSN(cfg))
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db

		var feed syncer.Feed
		if cfg.RealtimeURL != "" {
			a.listener = realtime.NewListener(cfg.RealtimeURL, st, sessions, logger)
			feed = a.listener
		}
		a.syncer = syncer.New(st, db, sessions, feed, logger)
	}

	return a, nil
}

// close releases the app's resources in dependency order.
func (a *app) close() {
	if a.syncer != nil {
		a.syncer.Close()
	}
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.sessions != nil {
		_ = a.sessions.Close()
	}
}

// remoteDSN appends the auth token to hosted DSNs.
func remoteDSN(cfg *config.Config) string {
	if cfg.RemoteAuthToken == "" {
		return cfg.RemoteDSN
	}
	return cfg.RemoteDSN + "?authToken=" + cfg.RemoteAuthToken
}

// requireSyncer fails commands that need a configured remote store.
func (a *app) requireSyncer() error {
	if a.syncer == nil {
		return fmt.Errorf("no remote store configured; set remote_dsn in %s", config.FileName)
	}
	return nil
}

// parseDayArg resolves a day argument. Empty means today; exact
// YYYY-MM-DD dates pass through; anything else goes through
// natural-language parsing ("yesterday", "last friday").
func parseDayArg(arg string) (string, error) {
	if arg == "" {
		return journal.Today(), nil
	}
	if journal.ValidDay(arg) {
		return arg, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(arg, time.Now())
	if err != nil || r == nil {
		return "", fmt.Errorf("cannot understand day %q (try YYYY-MM-DD)", arg)
	}
	return journal.FormatDay(r.Time), nil
}

// fail prints a styled error and exits.
func fail(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, styles.Error.Render("Error: ")+fmt.Sprintf(format, args...))
	os.Exit(1)
}
