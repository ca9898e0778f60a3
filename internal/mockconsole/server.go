package mockconsole

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/JongoDB/cyroid-console/internal/channel"
	"github.com/JongoDB/cyroid-console/internal/relay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves a mock console endpoint: connection-info for any VM, a
// console landing page, and the WebSocket control channel wired to a
// Document.
type Server struct {
	doc    *Document
	router *mux.Router
}

// New creates a Server around the given document.
func New(doc *Document) *Server {
	s := &Server{doc: doc}
	r := mux.NewRouter()
	r.HandleFunc("/api/vms/{id}/connection-info", s.handleConnectionInfo).Methods("GET")
	r.HandleFunc("/console/", s.handleConsolePage).Methods("GET")
	r.HandleFunc("/ws", s.handleChannel).Methods("GET")
	s.router = r
	return s
}

// Handler returns the HTTP handler, for mounting on a listener or httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleConnectionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"path":           "/console/",
		"hostname":       r.Host,
		"websocket_path": "/ws",
	})
}

func (s *Server) handleConsolePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body>mock remote desktop</body></html>"))
}

// handleChannel speaks the embedded side of the protocol: script-injection
// control requests against the document, clipboard pushes answered with acks,
// and the ready announcement after the relay handler is created.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("mockconsole: upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var writeMu sync.Mutex
	send := func(payload []byte) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	sendRelay := func(m relay.Message) {
		if data, err := m.Encode(); err == nil {
			send(data)
		}
	}
	sendControl := func(c channel.Control) {
		if data, err := c.Encode(); err == nil {
			send(data)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if ctl, ok := channel.DecodeControl(data); ok {
			s.handleControl(ctl, sendControl, sendRelay)
			continue
		}
		if m, ok := relay.Decode(data); ok && m.Kind == relay.KindPush {
			if m.Text == "" {
				continue
			}
			ok := s.doc.ApplyClipboard(m.Text, relay.ClipboardSelectors)
			sendRelay(relay.Ack(ok))
		}
		// Anything else: dropped, per protocol.
	}
}

func (s *Server) handleControl(ctl channel.Control, sendControl func(channel.Control), sendRelay func(relay.Message)) {
	switch ctl.Control {
	case channel.ControlQueryMarker:
		reply := channel.Control{Control: channel.ControlMarkerResult, ID: ctl.ID}
		present, err := s.doc.HasElement(ctl.Marker)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Present = &present
		}
		sendControl(reply)

	case channel.ControlAppendScript:
		reply := channel.Control{Control: channel.ControlAppendResult, ID: ctl.ID}
		region, known := channel.RegionFromName(ctl.Region)
		if !known {
			reply.Error = "unknown region: " + ctl.Region
			sendControl(reply)
			return
		}
		err := s.doc.AppendScript(region, ctl.ScriptID, ctl.Source)
		if err != nil {
			reply.Error = err.Error()
			sendControl(reply)
			return
		}
		ok := true
		reply.OK = &ok
		sendControl(reply)
		// Announce readiness once the handler exists, exactly once.
		if s.doc.ConsumeReady() {
			sendRelay(relay.Ready())
		}
	}
}
