package conflict

import (
	"log"
	"os"
	"testing"

	"github.com/daybook-sh/daybook/internal/store"
)

func setupResolver(t *testing.T) (*store.Store, *Resolver) {
	t.Helper()

	st, err := store.Open(t.TempDir(), log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st, New(st, log.New(os.Stderr, "[test] ", 0))
}

func TestOpenAdoptsIntoEmptyEntry(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"

	if got := r.Open(day, "B"); got != StateIdle {
		t.Fatalf("state = %v, want Idle", got)
	}

	e, ok := st.Get(day)
	if !ok || e.Content != "B" {
		t.Errorf("supplied content not adopted: %+v", e)
	}
	if e.Synced {
		t.Error("adopted content must land unsynced")
	}
}

func TestOpenIdleCases(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)

	if got := r.Open(day, ""); got != StateIdle {
		t.Errorf("empty supplied content: state = %v, want Idle", got)
	}
	if got := r.Open(day, "A"); got != StateIdle {
		t.Errorf("equal supplied content: state = %v, want Idle", got)
	}

	e, _ := st.Get(day)
	if e.Content != "A" {
		t.Errorf("stored content changed: %q", e.Content)
	}
}

func TestOverride(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)

	if got := r.Open(day, "B"); got != StatePending {
		t.Fatalf("state = %v, want Pending", got)
	}
	if r.Stored() != "A" || r.Supplied() != "B" {
		t.Errorf("held values stored=%q supplied=%q", r.Stored(), r.Supplied())
	}

	if got := r.Resolve(Override); got != "B" {
		t.Errorf("working content = %q, want B", got)
	}
	if r.State() != StateIdle {
		t.Error("resolver did not return to Idle")
	}
	e, _ := st.Get(day)
	if e.Content != "B" {
		t.Errorf("override not persisted: %q", e.Content)
	}
}

func TestAppend(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)

	if got := r.Open(day, "B"); got != StatePending {
		t.Fatalf("state = %v, want Pending", got)
	}
	if got := r.Resolve(Append); got != "A\n\nB" {
		t.Errorf("working content = %q", got)
	}
	e, _ := st.Get(day)
	if e.Content != "A\n\nB" {
		t.Errorf("append not persisted: %q", e.Content)
	}
}

func TestKeepExisting(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)
	before, _ := st.Get(day)

	if got := r.Open(day, "B"); got != StatePending {
		t.Fatalf("state = %v, want Pending", got)
	}
	if got := r.Resolve(KeepExisting); got != "A" {
		t.Errorf("working content = %q, want A", got)
	}

	// Keep-existing does not re-persist.
	after, _ := st.Get(day)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("keep-existing touched the stored entry")
	}
}

func TestResolvedValueDoesNotRetrigger(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)

	if got := r.Open(day, "B"); got != StatePending {
		t.Fatalf("state = %v, want Pending", got)
	}
	r.Resolve(KeepExisting)

	// Same supplied value, same day: no new conflict.
	if got := r.Open(day, "B"); got != StateIdle {
		t.Errorf("resolved value re-triggered: state = %v", got)
	}

	// A different supplied value is a fresh conflict.
	if got := r.Open(day, "C"); got != StatePending {
		t.Errorf("new supplied value: state = %v, want Pending", got)
	}
}

func TestResolutionScopedPerDay(t *testing.T) {
	st, r := setupResolver(t)
	st.SetEntry("2025-06-15", "A", "", nil, nil)
	st.SetEntry("2025-06-16", "A", "", nil, nil)

	r.Open("2025-06-15", "B")
	r.Resolve(KeepExisting)

	if got := r.Open("2025-06-16", "B"); got != StatePending {
		t.Errorf("resolution for one day suppressed another: state = %v", got)
	}
}

func TestOverridePreservesIdentity(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "title", []string{"happy"}, nil)

	r.Open(day, "B")
	r.Resolve(Override)

	e, _ := st.Get(day)
	if e.Title != "title" || len(e.Moods) != 1 || e.Moods[0] != "happy" {
		t.Errorf("resolution dropped title or moods: %+v", e)
	}
	if e.Synced {
		t.Error("resolved entry must land unsynced for the next push")
	}
}

func TestResolveWhileIdleIsNoop(t *testing.T) {
	st, r := setupResolver(t)
	day := "2025-06-15"
	st.SetEntry(day, "A", "", nil, nil)

	r.Open(day, "A")
	if got := r.Resolve(Override); got != "A" {
		t.Errorf("idle Resolve returned %q", got)
	}
	e, _ := st.Get(day)
	if e.Content != "A" {
		t.Errorf("idle Resolve mutated the store: %q", e.Content)
	}
}
