package mockconsole

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JongoDB/cyroid-console/internal/channel"
	"github.com/JongoDB/cyroid-console/internal/inject"
	"github.com/JongoDB/cyroid-console/internal/relay"
)

// dialMock starts a mock console and returns a connected channel.
func dialMock(t *testing.T, doc *Document) (*channel.Channel, func()) {
	t.Helper()
	srv := httptest.NewServer(New(doc).Handler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ch, err := channel.Dial(context.Background(), wsURL)
	if err != nil {
		srv.Close()
		t.Fatalf("dial mock console: %v", err)
	}
	return ch, func() {
		_ = ch.Close()
		srv.Close()
	}
}

func TestInjectAndRoundTrip(t *testing.T) {
	doc := NewDocument(WithControl("#clipboard-input"))
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	relayMsgs := make(chan relay.Message, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(m relay.Message) { relayMsgs <- m })
	}()

	// Inject the relay script through the channel.
	in := inject.New(ch.ScriptTarget())
	if got := in.TryInject(); got != inject.OutcomeInjected {
		t.Fatalf("TryInject = %v, want injected", got)
	}

	// The embedded handler announces readiness exactly once.
	select {
	case m := <-relayMsgs:
		if m.Kind != relay.KindReady {
			t.Fatalf("first relay message = %+v, want ready", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ready signal")
	}

	// Repeated injection is a no-op and must not re-announce.
	if got := in.TryInject(); got != inject.OutcomeAlreadyInjected {
		t.Fatalf("second TryInject = %v, want already-injected", got)
	}
	if doc.ScriptCount() != 1 {
		t.Errorf("script elements = %d, want 1", doc.ScriptCount())
	}

	// Push text; the relay finds the control and acks success.
	if err := ch.Send(relay.Push("hello")); err != nil {
		t.Fatalf("send push: %v", err)
	}
	select {
	case m := <-relayMsgs:
		if m.Kind != relay.KindAck || !m.Success {
			t.Fatalf("relay message = %+v, want ack(success=true)", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ack")
	}

	if got, _ := doc.ControlValue("#clipboard-input"); got != "hello" {
		t.Errorf("control value = %q, want %q", got, "hello")
	}
}

func TestAckFailureWithoutControl(t *testing.T) {
	doc := NewDocument() // no clipboard control present
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	relayMsgs := make(chan relay.Message, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(m relay.Message) { relayMsgs <- m })
	}()

	if err := ch.Send(relay.Push("orphan")); err != nil {
		t.Fatalf("send push: %v", err)
	}
	select {
	case m := <-relayMsgs:
		if m.Kind != relay.KindAck || m.Success {
			t.Fatalf("relay message = %+v, want ack(success=false)", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ack")
	}
}

func TestEmptyPushIsIgnored(t *testing.T) {
	doc := NewDocument(WithControl("#clipboard-input"))
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	relayMsgs := make(chan relay.Message, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(m relay.Message) { relayMsgs <- m })
	}()

	if err := ch.Send(relay.Push("")); err != nil {
		t.Fatalf("send push: %v", err)
	}
	select {
	case m := <-relayMsgs:
		t.Fatalf("unexpected reply %+v to empty push", m)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCrossOriginBlocksInjection(t *testing.T) {
	doc := NewDocument(CrossOrigin())
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(relay.Message) {})
	}()

	in := inject.New(ch.ScriptTarget())
	if got := in.TryInject(); got != inject.OutcomeBlocked {
		t.Errorf("TryInject = %v, want blocked for cross-origin document", got)
	}
}

func TestRegionFallback(t *testing.T) {
	doc := NewDocument(WithoutRegion(inject.RegionHead))
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(relay.Message) {})
	}()

	in := inject.New(ch.ScriptTarget())
	if got := in.TryInject(); got != inject.OutcomeInjected {
		t.Errorf("TryInject = %v, want injected via body fallback", got)
	}
}

func TestSyncerEndToEnd(t *testing.T) {
	doc := NewDocument(WithControl("#clipboard-input"))
	ch, cleanup := dialMock(t, doc)
	defer cleanup()

	syncer := relay.NewSyncer(ch.Send, relay.WithIndicatorTTL(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ch.Run(ctx, func(m relay.Message) {
			if m.Kind == relay.KindAck {
				syncer.HandleAck(m.Success)
			}
		})
	}()

	if !syncer.Observe("hello", time.Now(), true, true) {
		t.Fatal("observation should push")
	}

	// Ack arrives asynchronously and lights the indicator.
	deadline := time.Now().Add(2 * time.Second)
	for !syncer.Synced() {
		if time.Now().After(deadline) {
			t.Fatal("indicator never lit")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Then it auto-clears.
	time.Sleep(250 * time.Millisecond)
	if syncer.Synced() {
		t.Error("indicator should auto-clear")
	}
}
