package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/daybook-sh/daybook/internal/journal"
	"github.com/daybook-sh/daybook/internal/realtime"
	"github.com/daybook-sh/daybook/internal/remote"
	"github.com/daybook-sh/daybook/internal/session"
	"github.com/daybook-sh/daybook/internal/store"
)

// Feed receives change events after successful remote writes so other
// devices converge without polling. A nil Feed disables publishing.
type Feed interface {
	Publish(ev realtime.Event)
}

// syncer implements the Syncer interface.
type syncer struct {
	store    *store.Store
	table    remote.Table
	sessions session.Provider
	feed     Feed
	logger   *log.Logger

	mu       sync.Mutex
	queues   map[string]chan struct{}
	lastSync time.Time
	closed   bool

	wg sync.WaitGroup
}

// New creates a Syncer over the given store, remote table and session
// provider. If logger is nil, a default logger writing to stderr is
// used. feed may be nil.
func New(st *store.Store, table remote.Table, sessions session.Provider, feed Feed, logger *log.Logger) Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &syncer{
		store:    st,
		table:    table,
		sessions: sessions,
		feed:     feed,
		logger:   logger,
		queues:   make(map[string]chan struct{}),
	}
}

// PushDay implements Syncer.PushDay.
func (s *syncer) PushDay(ctx context.Context, day string) error {
	sess := s.sessions.Current()
	if sess == nil {
		return nil
	}

	e, ok := s.store.Get(day)
	if !ok || e.Synced {
		return nil
	}

	row := rowFromEntry(sess.UserID, day, e)

	if e.RemoteID == "" {
		if err := s.table.Insert(ctx, &row); err != nil {
			s.logger.Printf("Push failed for %s: %v", day, err)
			return fmt.Errorf("failed to insert entry for %s: %w", day, err)
		}
		s.store.MarkSynced(day, row.ID, row.CreatedAt)
		s.publish(realtime.EventInsert, row)
		s.logger.Printf("Pushed %s (created %s)", day, row.ID)
		return nil
	}

	row.ID = e.RemoteID
	if err := s.table.Update(ctx, &row); err != nil {
		s.logger.Printf("Push failed for %s: %v", day, err)
		return fmt.Errorf("failed to update entry for %s: %w", day, err)
	}
	s.store.MarkSynced(day, e.RemoteID, e.CreatedAt)
	s.publish(realtime.EventUpdate, row)
	s.logger.Printf("Pushed %s (updated %s)", day, row.ID)
	return nil
}

// PushAll implements Syncer.PushAll.
func (s *syncer) PushAll(ctx context.Context) error {
	if s.sessions.Current() == nil {
		return nil
	}

	var pushed, failed int
	for day, e := range s.store.Snapshot() {
		if e.Synced {
			continue
		}
		if err := s.PushDay(ctx, day); err != nil {
			s.logger.Printf("WARNING: failed to push %s: %v", day, err)
			failed++
			continue
		}
		pushed++
	}

	if pushed > 0 || failed > 0 {
		s.logger.Printf("Push sweep complete: pushed=%d failed=%d", pushed, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pushes failed", failed, pushed+failed)
	}
	return nil
}

// PullAll implements Syncer.PullAll.
func (s *syncer) PullAll(ctx context.Context) error {
	sess := s.sessions.Current()
	if sess == nil {
		return nil
	}

	rows, err := s.table.FetchAll(ctx, sess.UserID)
	if err != nil {
		s.logger.Printf("Pull failed: %v", err)
		return fmt.Errorf("failed to fetch remote entries: %w", err)
	}

	var applied int
	for _, row := range rows {
		local, ok := s.store.Get(row.Date)
		if ok {
			if !local.Synced {
				// Pending local edits always win until pushed.
				continue
			}
			if !row.UpdatedAt.After(local.UpdatedAt) {
				continue
			}
		}
		s.store.ApplyRemote(row.Date, row.Entry())
		applied++
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()

	s.logger.Printf("Pulled %d rows, applied %d", len(rows), applied)
	return nil
}

// DeleteRemote implements Syncer.DeleteRemote.
func (s *syncer) DeleteRemote(ctx context.Context, day string) error {
	sess := s.sessions.Current()
	if sess == nil {
		return nil
	}

	e, ok := s.store.Get(day)
	if !ok || e.RemoteID == "" {
		return nil
	}

	if err := s.table.Delete(ctx, e.RemoteID); err != nil {
		s.logger.Printf("Remote delete failed for %s: %v", day, err)
		return fmt.Errorf("failed to delete remote entry for %s: %w", day, err)
	}

	s.publish(realtime.EventDelete, remote.Row{ID: e.RemoteID, UserID: sess.UserID, Date: day})
	s.logger.Printf("Deleted remote entry for %s", day)
	return nil
}

// EnqueuePush implements Syncer.EnqueuePush.
func (s *syncer) EnqueuePush(day string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ch, ok := s.queues[day]
	if !ok {
		ch = make(chan struct{}, 1)
		s.queues[day] = ch
		s.wg.Add(1)
		go s.pushWorker(day, ch)
	}
	s.mu.Unlock()

	// Coalesce: a pending signal already covers this mutation, since
	// the worker reads the latest entry state when it runs.
	select {
	case ch <- struct{}{}:
	default:
	}
}

// pushWorker serializes pushes for one day.
func (s *syncer) pushWorker(day string, ch chan struct{}) {
	defer s.wg.Done()
	for range ch {
		if err := s.PushDay(context.Background(), day); err != nil {
			// Already logged; entry stays unsynced for a later retry.
			continue
		}
	}
}

// LastSync implements Syncer.LastSync.
func (s *syncer) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Close implements Syncer.Close.
func (s *syncer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, ch := range s.queues {
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *syncer) publish(typ realtime.EventType, row remote.Row) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(realtime.Event{Type: typ, Row: row, Timestamp: time.Now()})
}

func rowFromEntry(userID, day string, e journal.Entry) remote.Row {
	return remote.Row{
		UserID:    userID,
		Date:      day,
		Title:     e.Title,
		Content:   e.Content,
		Moods:     e.Moods,
		Files:     e.Files,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
