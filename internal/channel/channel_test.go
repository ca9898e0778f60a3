package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JongoDB/cyroid-console/internal/relay"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startEcho runs a WebSocket server that passes each inbound frame to handle
// and writes back whatever handle returns (nil means no reply).
func startEcho(t *testing.T, handle func([]byte) [][]byte) (string, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var mu sync.Mutex
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, reply := range handle(data) {
				mu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, reply)
				mu.Unlock()
			}
		}
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.Close
}

func TestRunRoutesRelayMessages(t *testing.T) {
	wsURL, stop := startEcho(t, func(data []byte) [][]byte {
		// Reflect every push back as a successful ack.
		if m, ok := relay.Decode(data); ok && m.Kind == relay.KindPush {
			ack, _ := relay.Ack(true).Encode()
			return [][]byte{ack}
		}
		return nil
	})
	defer stop()

	ch, err := Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = ch.Close() }()

	got := make(chan relay.Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ch.Run(ctx, func(m relay.Message) { got <- m }) }()

	if err := ch.Send(relay.Push("text")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case m := <-got:
		if m.Kind != relay.KindAck || !m.Success {
			t.Errorf("got %+v, want ack(true)", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no relay message routed")
	}
}

func TestRunDropsMalformedFrames(t *testing.T) {
	wsURL, stop := startEcho(t, func(data []byte) [][]byte {
		ready, _ := relay.Ready().Encode()
		return [][]byte{
			[]byte("not json"),
			[]byte(`{"type":"bogus"}`),
			ready,
		}
	})
	defer stop()

	ch, err := Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = ch.Close() }()

	got := make(chan relay.Message, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ch.Run(ctx, func(m relay.Message) { got <- m }) }()

	_ = ch.Send(relay.Push("poke"))

	select {
	case m := <-got:
		if m.Kind != relay.KindReady {
			t.Errorf("got %+v, want only the valid ready frame", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame not delivered")
	}
	select {
	case m := <-got:
		t.Errorf("unexpected extra message %+v from malformed frames", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScriptTargetTimeout(t *testing.T) {
	// Server that never replies to control requests.
	wsURL, stop := startEcho(t, func([]byte) [][]byte { return nil })
	defer stop()

	ch, err := Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = ch.Close() }()
	ch.controlTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ch.Run(ctx, func(relay.Message) {}) }()

	if _, err := ch.ScriptTarget().HasElement("marker"); err == nil {
		t.Error("HasElement should fail when the console never replies")
	}
}

func TestDecodeControlRejectsNonControl(t *testing.T) {
	tests := []string{
		`{"type":"clipboard-bridge-ready"}`,
		`{"control":"query-marker"}`, // missing id
		`{"id":"abc"}`,               // missing verb
		`garbage`,
	}
	for _, data := range tests {
		if _, ok := DecodeControl([]byte(data)); ok {
			t.Errorf("DecodeControl(%s) accepted, want rejected", data)
		}
	}
}

func TestControlRoundTrip(t *testing.T) {
	present := true
	c := Control{Control: ControlMarkerResult, ID: "req-1", Present: &present}
	data, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := DecodeControl(data)
	if !ok || got.Control != ControlMarkerResult || got.ID != "req-1" || got.Present == nil || !*got.Present {
		t.Errorf("round trip = %+v", got)
	}
	if !got.isReply() {
		t.Error("marker-result should be a reply")
	}
}
