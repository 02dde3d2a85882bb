package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.campaigns/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is the envelope written to WebSocket clients.
type Message struct {
	Kind string `json:"kind"` // "dashboard" or "event"
	Data any    `json:"data"`
}

// ServerOption configures a WebSocketServer.
type ServerOption func(*WebSocketServer)

// WithServerLogger sets the logger used by the server.
func WithServerLogger(logger logging.Logger) ServerOption {
	return func(s *WebSocketServer) {
		s.logger = logger
	}
}

// WithStats adds a source whose value is served under "extra" on
// /stats.
func WithStats(source func() any) ServerOption {
	return func(s *WebSocketServer) {
		s.extraStats = source
	}
}

// WithCheckOrigin overrides the origin check of the upgrader.
func WithCheckOrigin(check func(r *http.Request) bool) ServerOption {
	return func(s *WebSocketServer) {
		s.upgrader.CheckOrigin = check
	}
}

// WebSocketServer pushes every collected event to connected
// WebSocket clients. Each client first receives the current
// dashboard snapshot.
type WebSocketServer struct {
	mu         sync.RWMutex
	collector  *EventCollector
	dashboard  *DashboardData
	clients    map[*client]struct{}
	addr       string
	server     *http.Server
	upgrader   websocket.Upgrader
	logger     logging.Logger
	extraStats func() any
	attach     sync.Once
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketServer creates a server for live monitoring.
func NewWebSocketServer(
	addr string,
	collector *EventCollector,
	dashboard *DashboardData,
	opts ...ServerOption,
) *WebSocketServer {
	s := &WebSocketServer{
		addr:      addr,
		collector: collector,
		dashboard: dashboard,
		clients:   make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving /ws, /dashboard,
// /stats and /health. The first call subscribes the server to the
// collector.
func (s *WebSocketServer) Handler() http.Handler {
	s.attach.Do(func() {
		s.collector.OnEvent(func(event Event) {
			s.dashboard.UpdateFromEvent(event)
			data, err := json.Marshal(Message{Kind: "event", Data: event})
			if err != nil {
				return
			}
			s.broadcast(data)
		})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until ctx is done.
func (s *WebSocketServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()
		_ = s.Stop(shutdownCtx)
	}()

	s.logger.Info("monitor listening", logging.StringField("addr", s.addr))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Stop shuts down the server and disconnects every client.
func (s *WebSocketServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) handleWebSocket(
	w http.ResponseWriter,
	r *http.Request,
) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.ErrorField(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// Queue the snapshot before registering so it is always the
	// first message.
	if data, err := json.Marshal(Message{
		Kind: "dashboard", Data: s.dashboard.Snapshot(),
	}); err == nil {
		c.send <- data
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (s *WebSocketServer) readPump(c *client) {
	defer func() {
		s.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *WebSocketServer) handleDashboard(
	w http.ResponseWriter,
	_ *http.Request,
) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.dashboard.Snapshot())
}

func (s *WebSocketServer) handleStats(
	w http.ResponseWriter,
	_ *http.Request,
) {
	body := map[string]any{
		"events":  s.collector.Stats(),
		"clients": s.ClientCount(),
	}
	if s.extraStats != nil {
		body["extra"] = s.extraStats()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *WebSocketServer) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
