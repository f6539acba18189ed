// Package syncer keeps the local entry store and the remote
// journal_entries table eventually consistent while a session exists.
package syncer

import (
	"context"
	"time"
)

// Syncer reconciles local and remote entry state.
//
// All operations are gated on an active session: without one they are
// silent no-ops. The syncer never keeps its own copy of entries; it
// reads and writes exclusively through the local store's API.
//
// The conflict policy is last-write-wins by updated_at, restricted to
// entries the client has not modified since its last known-synced
// state: a pull never overwrites an unsynced local entry.
type Syncer interface {
	// PushDay writes day's local entry to the remote table.
	//
	// It is a no-op when there is no session, no entry, or the entry is
	// already synced, so calling it twice without an intervening local
	// mutation performs at most one network write. An entry without a
	// RemoteID is inserted (the generated id and created_at are stored
	// back on the local entry); otherwise the remote row is updated by
	// id. On success the entry is marked synced; on failure it stays
	// unsynced so a later trigger retries.
	//
	// The entry is read once at the start: a local edit landing while a
	// push for the same day is in flight is marked synced with it and
	// reaches the remote on the day's next push trigger.
	//
	// The returned error is for explicit callers (`daybook sync`);
	// fire-and-forget paths log it and move on.
	PushDay(ctx context.Context, day string) error

	// PushAll pushes every unsynced local entry. Individual day
	// failures are logged and do not stop the sweep.
	PushAll(ctx context.Context) error

	// PullAll fetches all remote rows for the current user and merges
	// them into the local store. A remote row wins only when no local
	// entry exists for its day, or the local entry is synced and the
	// remote updated_at is strictly newer. Unsynced local edits are
	// never overwritten. LastSync advances only on success.
	PullAll(ctx context.Context) error

	// DeleteRemote removes day's row from the remote table. Local
	// deletion is separate and is the caller's first step; this is the
	// explicit opt-in remote propagation path.
	DeleteRemote(ctx context.Context, day string) error

	// EnqueuePush schedules an asynchronous push for day. Pushes for
	// the same day are serialized in order; different days push
	// concurrently.
	EnqueuePush(day string)

	// LastSync returns when the last successful pull completed, or the
	// zero time if none has.
	LastSync() time.Time

	// Close stops the push workers. Pending enqueued pushes may be
	// dropped; unsynced entries are retried on the next trigger.
	Close()
}
