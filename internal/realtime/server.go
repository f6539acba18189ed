package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Server is the change-feed hub. Each device holds one WebSocket
// subscription scoped to its user; events published by any device are
// rebroadcast to every subscriber of the same user, including the
// publisher (the echo is authoritative, it confirms the server saw the
// write).
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	// Subscriber management: connection -> owning user id.
	clients   map[*websocket.Conn]string
	clientsMu sync.RWMutex

	broadcast chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// ServerConfig holds hub configuration.
type ServerConfig struct {
	// Port to listen on (default: 8484). Port 0 picks a free port,
	// which tests rely on.
	Port int

	// Logger for hub activity (default: log.Default()).
	Logger *log.Logger
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:   8484,
		Logger: log.Default(),
	}
}

// NewServer creates a change-feed hub server.
func NewServer(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan Event, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Change feed listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the hub.
func (s *Server) Stop() error {
	s.logger.Println("Stopping change feed hub")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Change feed hub stopped")
	return nil
}

// Broadcast queues an event for delivery to the owning user's
// subscribers. Used when the hub process itself writes the remote
// table; remote devices publish over their own connection instead.
func (s *Server) Broadcast(ev Event) {
	select {
	case s.broadcast <- ev:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping event")
	}
}

// Publish implements the syncer's Feed when the hub runs in-process.
func (s *Server) Publish(ev Event) {
	s.Broadcast(ev)
}

// broadcastLoop delivers queued events to matching subscribers.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case ev := <-s.broadcast:
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now()
			}

			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Printf("Failed to marshal event: %v", err)
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn, userID := range s.clients {
				if userID == ev.Row.UserID {
					conns = append(conns, conn)
				}
			}
			s.clientsMu.RUnlock()

			// Write outside the read lock to avoid blocking broadcasts.
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to subscriber: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket subscriptions.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = userID
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Subscriber connected for %s (total: %d)", userID, count)

	go s.readLoop(conn, userID)
}

// readLoop receives events published by a device and rebroadcasts them
// to that user's subscribers, in receipt order.
func (s *Server) readLoop(conn *websocket.Conn, userID string) {
	defer s.removeClient(conn)

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Printf("Dropping malformed event from %s: %v", userID, err)
			continue
		}
		// A device can only publish changes to its own rows.
		if ev.Row.UserID != userID {
			s.logger.Printf("Dropping event for foreign user from %s", userID)
			continue
		}

		s.Broadcast(ev)
	}
}

// removeClient safely removes a subscriber connection.
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		count := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Subscriber disconnected (total: %d)", count)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns hub health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	count := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"subscribers": count,
	})
}

// Addr returns the hub's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// SubscriberCount returns the current number of connected subscribers.
func (s *Server) SubscriberCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
