package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/daybook-sh/daybook/internal/session"
	"github.com/daybook-sh/daybook/internal/store"
)

// Listener holds one change-feed subscription per login session and
// applies incoming events to the local store.
//
// Insert and update events overwrite the local entry and mark it
// synced: they originate from the remote store itself and are
// authoritative. Delete events remove the local entry unconditionally,
// even if it had pending edits. Events are applied in receipt order.
//
// A dropped connection is redialed with capped backoff while the
// session stays signed in; Stop and logout end the redialing.
type Listener struct {
	hubURL   string
	store    *store.Store
	sessions session.Provider
	logger   *log.Logger

	redialBase time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	retry  context.CancelFunc
	gen    int
	wg     sync.WaitGroup
}

// redialMax caps the wait between reconnection attempts.
const redialMax = 30 * time.Second

// NewListener creates a listener against the hub at hubURL
// (e.g. "ws://feed.example.com:8484").
func NewListener(hubURL string, st *store.Store, sessions session.Provider, logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.New(os.Stderr, "[realtime] ", log.LstdFlags)
	}
	return &Listener{
		hubURL:     hubURL,
		store:      st,
		sessions:   sessions,
		logger:     logger,
		redialBase: time.Second,
	}
}

// Bind ties the subscription to the session lifecycle: logging in
// establishes it, logging out tears it down.
func (l *Listener) Bind() {
	l.sessions.OnChange(func(old, new *session.Session) {
		switch {
		case new != nil && old == nil:
			if err := l.Start(context.Background()); err != nil {
				l.logger.Printf("Failed to subscribe after login: %v", err)
			}
		case new == nil && old != nil:
			l.Stop()
		case new != nil && old != nil && new.UserID != old.UserID:
			l.Stop()
			if err := l.Start(context.Background()); err != nil {
				l.logger.Printf("Failed to resubscribe after user switch: %v", err)
			}
		}
	})
}

// Start establishes the subscription for the current session. It is a
// no-op when signed out or already subscribed (idempotent setup).
func (l *Listener) Start(ctx context.Context) error {
	sess := l.sessions.Current()
	if sess == nil {
		return nil
	}

	l.mu.Lock()
	if l.conn != nil {
		l.mu.Unlock()
		return nil
	}
	gen := l.gen
	l.mu.Unlock()

	u, err := url.Parse(l.hubURL)
	if err != nil {
		return fmt.Errorf("invalid hub url %q: %w", l.hubURL, err)
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"user_id": {sess.UserID}}.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())

	l.mu.Lock()
	if l.conn != nil || l.gen != gen {
		// Lost a setup race, or Stop ran while dialing.
		l.mu.Unlock()
		stop()
		_ = conn.Close(websocket.StatusNormalClosure, "duplicate subscription")
		return nil
	}
	l.conn = conn
	l.cancel = stop
	l.wg.Add(1)
	l.mu.Unlock()

	l.logger.Printf("Subscribed to change feed for %s", sess.UserID)
	go l.readLoop(runCtx, conn)
	return nil
}

// Stop tears down the subscription and any pending redial.
func (l *Listener) Stop() {
	l.mu.Lock()
	conn := l.conn
	cancel := l.cancel
	retry := l.retry
	l.conn = nil
	l.cancel = nil
	l.retry = nil
	l.gen++
	l.mu.Unlock()

	if conn == nil && retry == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	if retry != nil {
		retry()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	l.wg.Wait()
	l.logger.Println("Unsubscribed from change feed")
}

// Connected reports whether a subscription is active.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Publish sends a locally-produced change event up to the hub so other
// devices see it. Events published while unsubscribed are dropped;
// those devices converge on their next pull instead.
func (l *Listener) Publish(ev Event) {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		l.logger.Printf("Failed to marshal event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		l.logger.Printf("Failed to publish event: %v", err)
	}
}

// readLoop applies feed events until the subscription ends.
func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer l.wg.Done()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Printf("Change feed connection lost: %v", err)
				l.mu.Lock()
				if l.conn == conn {
					l.conn = nil
					if l.cancel != nil {
						l.cancel()
						l.cancel = nil
					}
					rctx, rcancel := context.WithCancel(context.Background())
					l.retry = rcancel
					l.wg.Add(1)
					go l.redial(rctx)
				}
				l.mu.Unlock()
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.logger.Printf("Dropping malformed feed event: %v", err)
			continue
		}

		l.apply(ev)
	}
}

// redial re-establishes a dropped subscription with capped backoff.
// It ends when the session is gone; the next login starts a fresh
// subscription through Bind.
func (l *Listener) redial(ctx context.Context) {
	defer l.wg.Done()

	wait := l.redialBase
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait < redialMax {
			wait *= 2
		}

		if l.sessions.Current() == nil {
			return
		}
		if err := l.Start(ctx); err != nil {
			l.logger.Printf("Change feed redial failed: %v", err)
			continue
		}
		return
	}
}

func (l *Listener) apply(ev Event) {
	switch ev.Type {
	case EventInsert, EventUpdate:
		l.store.ApplyRemote(ev.Row.Date, ev.Row.Entry())
		l.logger.Printf("Applied %s for %s", ev.Type, ev.Row.Date)
	case EventDelete:
		// Server deletes are authoritative, pending edits included.
		l.store.RemoveEntry(ev.Row.Date)
		l.logger.Printf("Applied delete for %s", ev.Row.Date)
	default:
		l.logger.Printf("Ignoring unknown event type %q", ev.Type)
	}
}
