// Package daemon provides the background process that keeps a journal
// converging with its remote store.
//
// The daemon:
// 1. Watches the local store for entry mutations
// 2. Debounces rapid edits and enqueues pushes after a quiet period
// 3. Periodically pulls the remote table for changes from other devices
// 4. Watches a drop folder and attaches new files to today's entry
package daemon

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/daybook-sh/daybook/internal/journal"
	"github.com/daybook-sh/daybook/internal/store"
	"github.com/daybook-sh/daybook/internal/syncer"
)

// Config holds configuration for the daemon.
type Config struct {
	// AutoSaveDelay is how long a day must stay quiet after an edit
	// before its push is enqueued. Each new edit resets the clock.
	AutoSaveDelay time.Duration

	// PullInterval is how often to fetch the remote table for changes
	// made on other devices.
	PullInterval time.Duration

	// AttachDir is a drop folder whose new files become attachments on
	// today's entry. Empty disables the watcher.
	AttachDir string

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AutoSaveDelay: 2 * time.Second,
		PullInterval:  time.Minute,
		Logger:        log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates debounced pushes, periodic pulls and the
// attachment drop folder.
type Daemon struct {
	store  *store.Store
	syncer syncer.Syncer
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // day -> last edit
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon over the given store and syncer.
func New(st *store.Store, sy syncer.Syncer, config *Config) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if sy == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.AutoSaveDelay <= 0 {
		config.AutoSaveDelay = 2 * time.Second
	}
	if config.PullInterval <= 0 {
		config.PullInterval = time.Minute
	}

	var watcher *fsnotify.Watcher
	if config.AttachDir != "" {
		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:       st,
		syncer:      sy,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Sweep any entries left unsynced from a previous run
// 2. Debounce store mutations into pushes
// 3. Pull remote changes on the configured interval
// 4. Watch the attachment drop folder, if one is configured
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	// Edits made while the daemon was down are still pending.
	if err := d.syncer.PushAll(d.ctx); err != nil {
		d.config.Logger.Printf("Warning: initial push sweep: %v", err)
	}
	if err := d.syncer.PullAll(d.ctx); err != nil {
		d.config.Logger.Printf("Warning: initial pull: %v", err)
	}

	changes := d.store.Subscribe()

	d.wg.Add(3)
	go d.watchStoreChanges(changes)
	go d.processChangeQueue()
	go d.pullLoop()

	if d.watcher != nil {
		if err := d.watcher.Add(d.config.AttachDir); err != nil {
			return fmt.Errorf("failed to watch attachment folder: %w", err)
		}
		d.config.Logger.Printf("Watching attachment folder: %s", d.config.AttachDir)
		d.wg.Add(1)
		go d.watchAttachments()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. Pending debounced edits get
// one final drain attempt before the workers exit.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}

	d.wg.Wait()

	d.flushPending(true)

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchStoreChanges queues mutated days for a debounced push.
func (d *Daemon) watchStoreChanges(changes <-chan string) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case day := <-changes:
			d.queueChange(day)
		}
	}
}

// queueChange records an edit, resetting the day's quiet-period clock.
func (d *Daemon) queueChange(day string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[day] = time.Now()
}

// processChangeQueue flushes days whose quiet period has elapsed.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	tick := d.config.AutoSaveDelay / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.flushPending(false)
		}
	}
}

// flushPending enqueues pushes for quiet days. force ignores the quiet
// period, used for the final drain on shutdown.
func (d *Daemon) flushPending(force bool) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for day, editedAt := range d.changeQueue {
		if !force && now.Sub(editedAt) < d.config.AutoSaveDelay {
			continue
		}
		d.syncer.EnqueuePush(day)
		delete(d.changeQueue, day)
	}
}

// pullLoop periodically applies remote changes.
func (d *Daemon) pullLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.syncer.PullAll(d.ctx); err != nil {
				d.config.Logger.Printf("Error pulling remote changes: %v", err)
			}
		}
	}
}

// watchAttachments turns files dropped into the attachment folder into
// attachments on today's entry.
func (d *Daemon) watchAttachments() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			d.attachFile(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// attachFile appends path to today's attachments, skipping duplicates.
func (d *Daemon) attachFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	day := journal.Today()
	e, _ := d.store.Get(day)
	for _, f := range e.Files {
		if f.URI == path {
			return
		}
	}

	files := append(e.Files, journal.Attachment{
		URI:  path,
		Type: attachmentType(path),
		Name: filepath.Base(path),
	})
	d.store.SetAttachments(day, files)
	d.config.Logger.Printf("Attached %s to %s", filepath.Base(path), day)
}

// attachmentType guesses a MIME type from the file extension.
func attachmentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
