// Package store holds the canonical in-process copy of all journal
// entries, keyed by day, and persists it across restarts.
//
// The store is the single owner of entry state within a process: the
// sync engine and the realtime listener read and write only through its
// API, never through a second copy. Every mutation updates the
// in-memory map first and then writes the snapshot to disk; a failed
// disk write is logged and retried on the next mutation, it never fails
// the operation.
//
// The CLI and the daemon are separate processes over the same
// directory, so every persist first merges the snapshot already on
// disk. Per day the later updated_at wins, and removals carry their own
// timestamps so a stale snapshot cannot resurrect a deleted entry.
package store

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/daybook-sh/daybook/internal/journal"
)

// storageKey is the fixed diskv key the entries snapshot lives under.
const storageKey = "journal-storage"

// snapshot is the persisted blob shape.
type snapshot struct {
	Entries map[string]journal.Entry `json:"entries"`
	Removed map[string]time.Time     `json:"removed,omitempty"`
}

// Store is the local entry store.
type Store struct {
	mu      sync.Mutex
	entries map[string]journal.Entry
	removed map[string]time.Time
	d       *diskv.Diskv
	logger  *log.Logger

	subs []chan string
}

// Open loads the last persisted snapshot from dir, creating the
// directory and an empty store on first run.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	d := diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 1024 * 1024, // 1MB
	})

	s := &Store{
		entries: make(map[string]journal.Entry),
		removed: make(map[string]time.Time),
		d:       d,
		logger:  logger,
	}

	data, err := d.Read(storageKey)
	switch {
	case err == nil:
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		if snap.Entries != nil {
			s.entries = snap.Entries
		}
		if snap.Removed != nil {
			s.removed = snap.Removed
		}
	case errors.Is(err, os.ErrNotExist):
		// First run, nothing persisted yet.
	default:
		return nil, err
	}

	return s, nil
}

// Subscribe returns a channel of day keys, sent on every local
// mutation. Sends are non-blocking: a slow consumer misses keys rather
// than stalling mutations.
func (s *Store) Subscribe() <-chan string {
	ch := make(chan string, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// SetEntry replaces the content, title and moods for day, creating the
// entry if absent. RemoteID and CreatedAt are preserved, UpdatedAt is
// refreshed, and the entry is marked unsynced. Existing attachments are
// preserved when files is nil.
func (s *Store) SetEntry(day, content, title string, moods []string, files []journal.Attachment) {
	s.mu.Lock()
	prev := s.entries[day]

	if len(moods) > journal.MaxMoodSelections {
		s.logger.Printf("Clamping moods for %s: %d over cap", day, len(moods))
		moods = moods[len(moods)-journal.MaxMoodSelections:]
	}

	e := journal.Entry{
		Content:   content,
		Title:     title,
		Moods:     append([]string(nil), moods...),
		Files:     files,
		RemoteID:  prev.RemoteID,
		CreatedAt: prev.CreatedAt,
		UpdatedAt: time.Now(),
		Synced:    false,
	}
	if files == nil {
		e.Files = prev.Files
	}

	s.entries[day] = e
	delete(s.removed, day)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(day)
}

// SetAttachments replaces only the attachments for day, with the same
// unsynced/updated-at bookkeeping as SetEntry.
func (s *Store) SetAttachments(day string, files []journal.Attachment) {
	s.mu.Lock()
	e := s.entries[day]
	e.Files = files
	e.UpdatedAt = time.Now()
	e.Synced = false
	s.entries[day] = e
	delete(s.removed, day)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(day)
}

// SelectMood toggles a mood on day's entry: present moods are removed,
// new moods append, and the oldest selection is evicted at the cap.
func (s *Store) SelectMood(day, key string) {
	s.mu.Lock()
	e := s.entries[day]
	e.Moods = journal.ToggleMood(e.Moods, key)
	e.UpdatedAt = time.Now()
	e.Synced = false
	s.entries[day] = e
	delete(s.removed, day)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(day)
}

// RemoveEntry deletes day from the store. This is a local-only delete;
// remote deletion is the caller's responsibility.
func (s *Store) RemoveEntry(day string) {
	s.mu.Lock()
	delete(s.entries, day)
	s.removed[day] = time.Now()
	s.persistLocked()
	s.mu.Unlock()
}

// Get returns a copy of day's entry.
func (s *Store) Get(day string) (journal.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[day]
	return e.Clone(), ok
}

// Snapshot returns a deep copy of the full entries map.
func (s *Store) Snapshot() map[string]journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]journal.Entry, len(s.entries))
	for day, e := range s.entries {
		out[day] = e.Clone()
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MarkSynced records a successful push for day. For a first push the
// remote-assigned id and created-at are stored on the entry.
func (s *Store) MarkSynced(day, remoteID string, createdAt time.Time) {
	s.mu.Lock()
	e, ok := s.entries[day]
	if !ok {
		s.mu.Unlock()
		return
	}
	if remoteID != "" {
		e.RemoteID = remoteID
	}
	if e.CreatedAt.IsZero() && !createdAt.IsZero() {
		e.CreatedAt = createdAt
	}
	e.Synced = true
	s.entries[day] = e
	s.persistLocked()
	s.mu.Unlock()
}

// ApplyRemote overwrites day with a server-confirmed entry. The entry
// is stored as synced; no push is triggered.
func (s *Store) ApplyRemote(day string, e journal.Entry) {
	e.Synced = true
	s.mu.Lock()
	s.entries[day] = e
	delete(s.removed, day)
	s.persistLocked()
	s.mu.Unlock()
}

// persistLocked merges the on-disk snapshot into memory and writes the
// result back. Must be called with mu held. Another process may have
// persisted entries this process has never seen; a blind overwrite
// would erase them. A write failure leaves the in-memory state
// authoritative; the next mutation retries.
func (s *Store) persistLocked() {
	if data, err := s.d.Read(storageKey); err == nil {
		var disk snapshot
		if err := json.Unmarshal(data, &disk); err == nil {
			s.mergeLocked(disk)
		} else {
			s.logger.Printf("Ignoring unreadable on-disk snapshot: %v", err)
		}
	}

	data, err := json.Marshal(snapshot{Entries: s.entries, Removed: s.removed})
	if err != nil {
		s.logger.Printf("Failed to encode snapshot: %v", err)
		return
	}
	if err := s.d.Write(storageKey, data); err != nil {
		s.logger.Printf("Failed to persist snapshot: %v", err)
	}
}

// mergeLocked folds another process's snapshot into this one. Per day
// the later updated_at wins; a removal beats any entry not updated
// after it.
func (s *Store) mergeLocked(disk snapshot) {
	for day, rt := range disk.Removed {
		if cur, ok := s.removed[day]; ok && !rt.After(cur) {
			continue
		}
		if e, ok := s.entries[day]; ok && e.UpdatedAt.After(rt) {
			continue
		}
		delete(s.entries, day)
		s.removed[day] = rt
	}

	for day, de := range disk.Entries {
		if rt, ok := s.removed[day]; ok && !de.UpdatedAt.After(rt) {
			continue
		}
		if le, ok := s.entries[day]; ok && !de.UpdatedAt.After(le.UpdatedAt) {
			continue
		}
		s.entries[day] = de
		delete(s.removed, day)
	}
}

func (s *Store) notify(day string) {
	s.mu.Lock()
	subs := append([]chan string(nil), s.subs...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- day:
		default:
			s.logger.Printf("Dropping change notification for %s: subscriber full", day)
		}
	}
}
