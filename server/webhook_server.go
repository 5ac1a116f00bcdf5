// Package server exposes the webhook surface the telephony vendor calls back
// into, plus a live transcript monitor for operators.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/DineCall/callstate"
	"github.com/room4-2/DineCall/twiml"
)

const monitorWriteWait = 10 * time.Second

// TurnHandler produces the next call-control document for a mid-call turn.
type TurnHandler interface {
	NextTurn(ctx context.Context, callSID, utterance string) *twiml.Response
}

// StatusHandler reacts to vendor status transitions.
type StatusHandler interface {
	OnCallTerminal(ctx context.Context, callSID, vendorStatus string)
}

// Server serves the vendor webhooks (/gather, /status), a health check, and a
// per-call transcript monitor over WebSocket.
type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	store      *callstate.Store
	turns      TurnHandler
	status     StatusHandler
	voice      string
}

// NewServer wires the webhook routes. voice is the vendor voice used for the
// last-resort hangup document.
func NewServer(port int, store *callstate.Store, turns TurnHandler, status StatusHandler, voice string) *Server {
	s := &Server{
		store:  store,
		turns:  turns,
		status: status,
		voice:  voice,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Monitor clients are operator tooling, not browsers with
				// meaningful origins.
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gather", s.handleGather)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/monitor/", s.handleMonitor)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
		// No WriteTimeout: a gather turn blocks on model generation and the
		// monitor connections are long-lived.
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for webhooks.
func (s *Server) Start() error {
	log.Printf("📞 Webhook server starting on %s", s.httpServer.Addr)
	log.Printf("📡 Gather endpoint: http://localhost%s/gather", s.httpServer.Addr)
	log.Printf("📡 Status endpoint: http://localhost%s/status", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down webhook server...")
	return s.httpServer.Shutdown(ctx)
}

// handleGather runs one conversation turn. The vendor posts the counterparty's
// transcribed speech and expects a call-control document back.
func (s *Server) handleGather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	callSID := r.PostForm.Get("CallSid")
	utterance := r.PostForm.Get("SpeechResult")
	log.Printf("📞 Gather for call %s: %q", callSID, utterance)

	// Turns for the same call run in delivery order; other calls proceed.
	release, err := s.store.BeginTurn(callSID)
	if err != nil {
		log.Printf("⚠️ Gather for unknown call %s", callSID)
		s.writeDocument(w, twiml.SpeakAndHangup(
			"I'm sorry, I seem to have lost track of this call. Goodbye.", s.voice))
		return
	}
	defer release()

	s.writeDocument(w, s.turns.NextTurn(r.Context(), callSID, utterance))
}

// handleStatus receives call status transitions. It always answers 200 so the
// vendor does not retry on our own processing problems.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err == nil {
		callSID := r.PostForm.Get("CallSid")
		vendorStatus := r.PostForm.Get("CallStatus")
		log.Printf("📞 Status for call %s: %s", callSID, vendorStatus)
		s.status.OnCallTerminal(r.Context(), callSID, vendorStatus)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"success":true}`)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","activeCalls":%d}`, s.store.ActiveCount())
}

// handleMonitor streams a call's transcript lines as JSON frames until the
// call ends or the client disconnects.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	callSID := strings.TrimPrefix(r.URL.Path, "/monitor/")
	if callSID == "" {
		http.Error(w, "missing call SID", http.StatusBadRequest)
		return
	}

	lines, cancel, err := s.store.Subscribe(callSID)
	if err != nil {
		http.Error(w, "unknown call", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Printf("Monitor upgrade failed for call %s: %v", callSID, err)
		return
	}
	log.Printf("📡 Monitor attached to call %s", callSID)

	defer func() {
		cancel()
		conn.Close()
		log.Printf("📡 Monitor detached from call %s", callSID)
	}()

	// Reader only watches for the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// Call ended and the record was evicted.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
					time.Now().Add(monitorWriteWait))
				return
			}
			payload, err := sonic.Marshal(line)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) writeDocument(w http.ResponseWriter, resp *twiml.Response) {
	document, err := resp.Render()
	if err != nil {
		log.Printf("❌ Failed to render call document: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(document))
}
