// Package control implements the control-server process: a WebSocket
// endpoint at /ws that admits a single remote controller and translates its
// action frames into pointer operations.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WaniAthar/remote-mouse-server/internal/storage"
)

// CloseSessionBusy is the WebSocket close code sent to a connection rejected
// because another controller already holds the session slot.
const CloseSessionBusy = 4001

// closeWriteTimeout bounds the write of a rejection close frame.
const closeWriteTimeout = 2 * time.Second

// Server is the control server. It owns the HTTP listener, the session gate,
// and the dispatcher; one Server drives one pointer.
type Server struct {
	// addr is the address to listen on (e.g., "0.0.0.0:8000").
	addr string

	// upgrader converts HTTP connections to WebSocket connections. Any
	// origin is accepted: the remote client is a phone app, not a browser,
	// and the channel carries no credentials.
	upgrader websocket.Upgrader

	gate       *Gate
	dispatcher *Dispatcher

	httpServer *http.Server
	startTime  time.Time

	// mu protects events, which is injected after construction.
	mu     sync.RWMutex
	events storage.SessionEventStore
}

// NewServer creates a control server listening on addr and driving the given
// dispatcher.
func NewServer(addr string, dispatcher *Dispatcher) *Server {
	return &Server{
		addr:       addr,
		gate:       NewGate(),
		dispatcher: dispatcher,
		startTime:  time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SetEventStore injects the session audit log. Optional; without it admission
// events are only logged.
func (s *Server) SetEventStore(events storage.SessionEventStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start begins serving. It blocks until Stop is called or the listener
// fails; use StartAsync to detect bind errors without blocking.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.createMux(),
	}

	log.Printf("control: listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// StartAsync starts the server in a goroutine. The returned channel receives
// nil once the listener is bound, or the bind error. Binding first means a
// port conflict is reported immediately instead of surfacing later as a
// failed request.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("listen on %s: %w", s.addr, err)
		close(errCh)
		return errCh
	}

	s.httpServer = &http.Server{Handler: s.createMux()}

	go func() {
		log.Printf("control: listening on %s", s.addr)
		errCh <- nil
		close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("control: server error: %v", err)
		}
	}()

	return errCh
}

// Stop shuts the server down gracefully, closing the listener and waiting
// for the active session's handler to return.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// createMux builds the HTTP routing table.
func (s *Server) createMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// StatusResponse is the JSON body of the /status endpoint, consumed by the
// front-end's status display.
type StatusResponse struct {
	// ListeningAddress is the address the server is bound to.
	ListeningAddress string `json:"listening_address"`

	// SessionActive reports whether a controller currently holds the slot.
	SessionActive bool `json:"session_active"`

	// SessionID identifies the active session, empty when none.
	SessionID string `json:"session_id,omitempty"`

	// RemoteAddr is the active controller's peer address, empty when none.
	RemoteAddr string `json:"remote_addr,omitempty"`

	// UptimeSeconds is how long this server process has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// handleStatus serves the /status endpoint. Local-only: the pointer slot's
// occupancy and the controller's address are nobody's business on the LAN.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !isLoopbackRequest(r) {
		http.Error(w, "Forbidden: status endpoint is local-only", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, remoteAddr, active := s.gate.Active()
	resp := StatusResponse{
		ListeningAddress: s.addr,
		SessionActive:    active,
		SessionID:        sessionID,
		RemoteAddr:       remoteAddr,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleWebSocket upgrades the connection and runs the session. Admission
// happens immediately after the upgrade: a rejected connection receives a
// CloseSessionBusy close frame and never reaches the dispatcher.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("control: upgrade failed: %v", err)
		return
	}

	remoteAddr := conn.RemoteAddr().String()

	sessionID, ok := s.gate.TryAcquire(remoteAddr)
	if !ok {
		log.Printf("control: rejecting %s, session %s is active", remoteAddr, sessionID)
		s.recordEvent(&storage.SessionEvent{
			SessionID:  sessionID,
			Kind:       storage.SessionEventRejected,
			RemoteAddr: remoteAddr,
			Detail:     "slot occupied",
		})

		msg := websocket.FormatCloseMessage(CloseSessionBusy, "another controller is connected")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		conn.Close()
		return
	}

	log.Printf("control: session %s admitted for %s", sessionID, remoteAddr)
	s.recordEvent(&storage.SessionEvent{
		SessionID:  sessionID,
		Kind:       storage.SessionEventConnected,
		RemoteAddr: remoteAddr,
	})

	s.runSession(conn, sessionID, remoteAddr)
}

// runSession reads frames until disconnect or protocol error. The gate
// release and the disconnect audit row are deferred so they run on every
// exit path, including panics in pointer injection.
func (s *Server) runSession(conn *websocket.Conn, sessionID, remoteAddr string) {
	defer func() {
		conn.Close()
		s.gate.Release(sessionID)
		s.recordEvent(&storage.SessionEvent{
			SessionID:  sessionID,
			Kind:       storage.SessionEventDisconnected,
			RemoteAddr: remoteAddr,
		})
		log.Printf("control: session %s closed", sessionID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("control: session %s read error: %v", sessionID, err)
			}
			return
		}

		if err := s.dispatcher.Dispatch(raw); err != nil {
			// Malformed frame: protocol error, tear the session down.
			log.Printf("control: session %s protocol error: %v", sessionID, err)
			msg := websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "malformed message")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
			return
		}
	}
}

// recordEvent writes to the audit log if one is configured.
func (s *Server) recordEvent(event *storage.SessionEvent) {
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()

	if events == nil {
		return
	}
	if err := events.RecordSessionEvent(event); err != nil {
		log.Printf("control: record session event: %v", err)
	}
}

// isLoopbackRequest reports whether the request came from this machine.
// Returns true for 127.0.0.0/8 and ::1.
func isLoopbackRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
