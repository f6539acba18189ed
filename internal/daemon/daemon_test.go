package daemon

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/daybook-sh/daybook/internal/journal"
	"github.com/daybook-sh/daybook/internal/store"
)

// fakeSyncer records calls so tests can observe daemon behavior.
type fakeSyncer struct {
	mu       sync.Mutex
	enqueued []string
	pushAlls int
	pullAlls int
}

func (f *fakeSyncer) PushDay(ctx context.Context, day string) error { return nil }

func (f *fakeSyncer) PushAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushAlls++
	return nil
}

func (f *fakeSyncer) PullAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullAlls++
	return nil
}

func (f *fakeSyncer) DeleteRemote(ctx context.Context, day string) error { return nil }

func (f *fakeSyncer) EnqueuePush(day string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, day)
}

func (f *fakeSyncer) LastSync() time.Time { return time.Time{} }

func (f *fakeSyncer) Close() {}

func (f *fakeSyncer) enqueuedDays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.enqueued...)
}

func (f *fakeSyncer) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullAlls
}

func startTestDaemon(t *testing.T, config *Config) (*store.Store, *fakeSyncer, *Daemon) {
	t.Helper()

	st, err := store.Open(t.TempDir(), log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	sy := &fakeSyncer{}

	d, err := New(st, sy, config)
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Start(context.Background())
	}()
	t.Cleanup(func() {
		_ = d.Stop()
		<-done
	})

	// Let Start finish its initial sweep and wire the subscriptions.
	time.Sleep(50 * time.Millisecond)
	return st, sy, d
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before timeout")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEditEnqueuesPushAfterQuietPeriod(t *testing.T) {
	st, sy, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: 50 * time.Millisecond,
		PullInterval:  time.Hour,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	st.SetEntry("2025-06-15", "body", "", nil, nil)

	waitFor(t, 2*time.Second, func() bool {
		days := sy.enqueuedDays()
		return len(days) == 1 && days[0] == "2025-06-15"
	})
}

func TestRapidEditsCoalesce(t *testing.T) {
	st, sy, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: 100 * time.Millisecond,
		PullInterval:  time.Hour,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	// Each edit lands inside the previous one's quiet period.
	for i := 0; i < 5; i++ {
		st.SetEntry("2025-06-15", "draft", "", nil, nil)
		time.Sleep(20 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(sy.enqueuedDays()) >= 1
	})
	time.Sleep(200 * time.Millisecond)
	if got := len(sy.enqueuedDays()); got != 1 {
		t.Errorf("rapid edits produced %d pushes, want 1", got)
	}
}

func TestDistinctDaysQueueSeparately(t *testing.T) {
	st, sy, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: 50 * time.Millisecond,
		PullInterval:  time.Hour,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	st.SetEntry("2025-06-15", "a", "", nil, nil)
	st.SetEntry("2025-06-16", "b", "", nil, nil)

	waitFor(t, 2*time.Second, func() bool {
		days := sy.enqueuedDays()
		seen := make(map[string]bool, len(days))
		for _, d := range days {
			seen[d] = true
		}
		return seen["2025-06-15"] && seen["2025-06-16"]
	})
}

func TestPeriodicPull(t *testing.T) {
	_, sy, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: time.Hour,
		PullInterval:  50 * time.Millisecond,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	// One pull happens at startup; the ticker adds more.
	waitFor(t, 2*time.Second, func() bool { return sy.pullCount() >= 3 })
}

func TestDropFolderAttachesToToday(t *testing.T) {
	attachDir := t.TempDir()
	st, _, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: time.Hour,
		PullInterval:  time.Hour,
		AttachDir:     attachDir,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	path := filepath.Join(attachDir, "photo.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		e, ok := st.Get(journal.Today())
		return ok && len(e.Files) == 1
	})

	e, _ := st.Get(journal.Today())
	if e.Files[0].Name != "photo.png" || e.Files[0].Type != "image/png" {
		t.Errorf("attachment = %+v", e.Files[0])
	}
}

func TestDropFolderSkipsHiddenFiles(t *testing.T) {
	attachDir := t.TempDir()
	st, _, _ := startTestDaemon(t, &Config{
		AutoSaveDelay: time.Hour,
		PullInterval:  time.Hour,
		AttachDir:     attachDir,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})

	if err := os.WriteFile(filepath.Join(attachDir, ".tmpfile"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if e, ok := st.Get(journal.Today()); ok && len(e.Files) > 0 {
		t.Errorf("hidden file was attached: %+v", e.Files)
	}
}

func TestStopDrainsPendingEdits(t *testing.T) {
	st, err := store.Open(t.TempDir(), log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	sy := &fakeSyncer{}

	d, err := New(st, sy, &Config{
		AutoSaveDelay: time.Hour, // quiet period never elapses on its own
		PullInterval:  time.Hour,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	})
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Start(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)

	st.SetEntry("2025-06-15", "body", "", nil, nil)
	time.Sleep(50 * time.Millisecond)

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	<-done

	days := sy.enqueuedDays()
	if len(days) != 1 || days[0] != "2025-06-15" {
		t.Errorf("shutdown drain enqueued %v", days)
	}
}

func TestNewRejectsNilDependencies(t *testing.T) {
	st, err := store.Open(t.TempDir(), log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := New(nil, &fakeSyncer{}, nil); err == nil {
		t.Error("nil store accepted")
	}
	if _, err := New(st, nil, nil); err == nil {
		t.Error("nil syncer accepted")
	}
}

