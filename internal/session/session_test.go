package session

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
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

func TestSignInSignOutRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	p, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if p.Current() != nil {
		t.Error("fresh provider should be signed out")
	}

	if err := p.SignIn("user-1", "tok"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if s := p.Current(); s == nil || s.UserID != "user-1" {
		t.Errorf("Current() = %+v", s)
	}

	// A second provider sees the persisted session.
	p2, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if s := p2.Current(); s == nil || s.UserID != "user-1" || s.Token != "tok" {
		t.Errorf("persisted session lost: %+v", s)
	}

	if err := p.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if p.Current() != nil {
		t.Error("still signed in after SignOut")
	}

	p3, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen after signout failed: %v", err)
	}
	if p3.Current() != nil {
		t.Error("session file survived SignOut")
	}
}

func TestOnChangeCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	// Callbacks may run on the file-watch goroutine.
	type change struct{ old, new *Session }
	var mu sync.Mutex
	var changes []change
	p.OnChange(func(old, new *Session) {
		mu.Lock()
		changes = append(changes, change{old, new})
		mu.Unlock()
	})

	if err := p.SignIn("user-1", ""); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := p.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(changes))
	}
	if changes[0].old != nil || changes[0].new == nil || changes[0].new.UserID != "user-1" {
		t.Errorf("sign-in callback: %+v", changes[0])
	}
	if changes[1].old == nil || changes[1].new != nil {
		t.Errorf("sign-out callback: %+v", changes[1])
	}
}

func TestExternalChangesFireCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	// The long-running side (the daemon) opens the file first.
	daemonSide, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer daemonSide.Close()

	var mu sync.Mutex
	var seen []*Session
	daemonSide.OnChange(func(old, new *Session) {
		mu.Lock()
		seen = append(seen, new)
		mu.Unlock()
	})

	// Login happens in a separate process.
	cliSide, err := OpenFile(path)
	if err != nil {
		t.Fatalf("second OpenFile failed: %v", err)
	}
	defer cliSide.Close()

	if err := cliSide.SignIn("user-1", "tok"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	waitFor(t, func() bool {
		s := daemonSide.Current()
		return s != nil && s.UserID == "user-1"
	})

	mu.Lock()
	if len(seen) == 0 || seen[len(seen)-1] == nil || seen[len(seen)-1].UserID != "user-1" {
		t.Errorf("sign-in callback not fired for external login: %+v", seen)
	}
	mu.Unlock()

	if err := cliSide.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	waitFor(t, func() bool { return daemonSide.Current() == nil })

	mu.Lock()
	if seen[len(seen)-1] != nil {
		t.Errorf("sign-out callback not fired for external logout: %+v", seen)
	}
	mu.Unlock()
}

func TestSignInRequiresUser(t *testing.T) {
	p, err := OpenFile(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if err := p.SignIn("", "tok"); err == nil {
		t.Error("SignIn with empty user id should fail")
	}
}
