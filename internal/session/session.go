// Package session supplies the authenticated identity that gates all
// sync and realtime activity. No session means local-only operation.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Session is an authenticated user session.
type Session struct {
	UserID string `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

// Provider exposes the current session and its lifecycle.
type Provider interface {
	// Current returns the active session, or nil when signed out.
	Current() *Session

	// OnChange registers a callback fired whenever the session changes
	// (sign-in, sign-out). Callbacks run synchronously in registration
	// order with the old and new session.
	OnChange(fn func(old, new *Session))

	// SignOut clears the session.
	SignOut() error
}

// FileProvider persists the session in a JSON file so CLI invocations
// share one login. The file is watched: login and logout usually happen
// in a different process than the daemon, and external changes must
// fire callbacks too.
type FileProvider struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	cur       *Session
	callbacks []func(old, new *Session)
}

var _ Provider = (*FileProvider)(nil)

// OpenFile loads the session file at path, if any, and starts watching
// it for changes made by other processes.
func OpenFile(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
		}
		if s.UserID != "" {
			p.cur = &s
		}
	case errors.Is(err, os.ErrNotExist):
		// Signed out.
	default:
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	// The parent directory is watched because editors and os.WriteFile
	// replace the file rather than updating it in place. Watch failure
	// degrades to in-process change notification only.
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(filepath.Dir(path)); err == nil {
			p.watcher = w
			go p.watchLoop(w)
		} else {
			_ = w.Close()
		}
	}

	return p, nil
}

// Close stops watching the session file.
func (p *FileProvider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

// Current implements Provider.Current.
func (p *FileProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return nil
	}
	s := *p.cur
	return &s
}

// OnChange implements Provider.OnChange.
func (p *FileProvider) OnChange(fn func(old, new *Session)) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

// SignIn stores and persists a new session.
func (p *FileProvider) SignIn(userID, token string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	next := &Session{UserID: userID, Token: token}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	p.swap(next)
	return nil
}

// SignOut implements Provider.SignOut.
func (p *FileProvider) SignOut() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	p.swap(nil)
	return nil
}

// swap installs next and fires callbacks. A no-op when the session is
// unchanged, so a file event racing the in-process SignIn or SignOut
// that caused it fires each callback once.
func (p *FileProvider) swap(next *Session) {
	p.mu.Lock()
	if sameSession(p.cur, next) {
		p.mu.Unlock()
		return
	}
	old := p.cur
	p.cur = next
	callbacks := append(([]func(old, new *Session))(nil), p.callbacks...)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(old, next)
	}
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// watchLoop reloads the session whenever the file changes on disk.
func (p *FileProvider) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(p.path) {
				continue
			}
			p.reload()
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// reload re-reads the file and applies the result through swap.
func (p *FileProvider) reload() {
	var next *Session
	data, err := os.ReadFile(p.path)
	switch {
	case err == nil:
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			// Likely caught mid-write; a later event re-reads it.
			return
		}
		if s.UserID != "" {
			next = &s
		}
	case errors.Is(err, os.ErrNotExist):
		// Signed out.
	default:
		return
	}

	p.swap(next)
}

// Static is a fixed-session Provider used in tests and for wiring a
// pre-authenticated identity. A nil Session means signed out.
type Static struct {
	Session *Session
}

// Current implements Provider.Current.
func (s Static) Current() *Session { return s.Session }

// OnChange implements Provider.OnChange. Static sessions never change.
func (s Static) OnChange(func(old, new *Session)) {}

// SignOut implements Provider.SignOut.
func (s Static) SignOut() error { return nil }
