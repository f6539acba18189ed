// Package conflict decides what happens when externally-supplied
// content (typically a voice transcription) arrives for a day that
// already has saved content. It is an explicit two-state machine:
// Idle, or Pending with exactly three ways out.
package conflict

import (
	"log"
	"os"
	"sync"

	"github.com/daybook-sh/daybook/internal/store"
)

// State is the resolver's current phase for the open day.
type State int

const (
	// StateIdle means no conflict: supplied content was absent, equal
	// to the stored content, or adopted into an empty entry.
	StateIdle State = iota

	// StatePending means stored and supplied content both exist and
	// differ; a resolution action is required.
	StatePending
)

// Action is one of the three resolutions for a pending conflict.
type Action int

const (
	// Override replaces the stored content with the supplied content.
	Override Action = iota

	// Append keeps the stored content and adds the supplied content
	// after a blank line.
	Append

	// KeepExisting discards the supplied content.
	KeepExisting
)

// Joiner separates stored and supplied content under Append.
const Joiner = "\n\n"

// Resolver detects and resolves content conflicts against the local
// store. One Resolver serves the whole process; each Open starts a new
// invocation for one day.
type Resolver struct {
	store  *store.Store
	logger *log.Logger

	mu       sync.Mutex
	state    State
	day      string
	stored   string
	supplied string

	// resolved remembers, per day, the supplied value that already went
	// through a resolution, so the same value cannot re-trigger.
	resolved map[string]string
}

// New creates a resolver over the local store. If logger is nil, a
// default logger writing to stderr is used.
func New(st *store.Store, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(os.Stderr, "[conflict] ", log.LstdFlags)
	}
	return &Resolver{
		store:    st,
		logger:   logger,
		resolved: make(map[string]string),
	}
}

// Open starts an invocation for day with the given supplied content
// and returns the resulting state.
//
// When the day has no stored content the supplied content is adopted
// and persisted immediately. When the supplied content is empty, equal
// to the stored content, or identical to a value already resolved for
// this day, nothing happens and the state is Idle. Otherwise the
// resolver enters Pending and holds both values until Resolve.
func (r *Resolver) Open(day, supplied string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateIdle
	r.day = day
	r.supplied = supplied

	e, _ := r.store.Get(day)
	r.stored = e.Content

	if supplied == "" || supplied == r.stored {
		return StateIdle
	}
	if prev, ok := r.resolved[day]; ok && prev == supplied {
		return StateIdle
	}

	if r.stored == "" {
		// Nothing to conflict with; the supplied content just becomes
		// the entry.
		r.store.SetEntry(day, supplied, e.Title, e.Moods, nil)
		r.stored = supplied
		r.logger.Printf("Adopted supplied content for %s", day)
		return StateIdle
	}

	r.state = StatePending
	r.logger.Printf("Conflict detected for %s", day)
	return StatePending
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stored returns the saved content the open invocation found.
func (r *Resolver) Stored() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored
}

// Supplied returns the external content held aside by the open
// invocation.
func (r *Resolver) Supplied() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supplied
}

// Resolve applies action to the pending conflict and returns the
// resulting working content. Override and Append persist the result;
// KeepExisting does not, since the stored content is already durable.
// The state returns to Idle and the supplied value is remembered so it
// cannot re-trigger for this day. Calling Resolve while Idle returns
// the stored content unchanged.
func (r *Resolver) Resolve(action Action) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePending {
		return r.stored
	}

	var working string
	switch action {
	case Override:
		working = r.supplied
	case Append:
		working = r.stored + Joiner + r.supplied
	case KeepExisting:
		working = r.stored
	}

	if action != KeepExisting {
		e, _ := r.store.Get(r.day)
		r.store.SetEntry(r.day, working, e.Title, e.Moods, nil)
	}

	r.resolved[r.day] = r.supplied
	r.state = StateIdle
	r.stored = working
	r.logger.Printf("Resolved conflict for %s", r.day)
	return working
}
