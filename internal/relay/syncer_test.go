package relay

import (
	"testing"
	"time"
)

// collectSends returns a SendFunc that appends pushed messages to a slice.
func collectSends(sent *[]Message) SendFunc {
	return func(m Message) error {
		*sent = append(*sent, m)
		return nil
	}
}

func TestObservePushesOncePerTimestamp(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent))

	at := time.Now()
	if !s.Observe("hello", at, true, false) {
		t.Fatal("first observation should push")
	}
	// Same timestamp again: duplicate intent, suppressed.
	if s.Observe("hello", at, true, false) {
		t.Error("duplicate timestamp should not push")
	}
	if len(sent) != 1 || sent[0] != Push("hello") {
		t.Errorf("sent = %+v, want single push of 'hello'", sent)
	}
}

func TestObserveCollapsesRapidUpdates(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent))

	t1 := time.Now()
	t2 := t1.Add(10 * time.Millisecond)

	if !s.Observe("first", t1, true, false) {
		t.Fatal("t1 should push")
	}
	if !s.Observe("second", t2, true, false) {
		t.Fatal("t2 should push")
	}
	// t1 arriving again after t2 superseded it must not resend.
	if s.Observe("first", t1, true, false) {
		t.Error("stale t1 should be suppressed after t2")
	}
	if len(sent) != 2 || sent[1] != Push("second") {
		t.Errorf("sent = %+v, want [first, second]", sent)
	}
}

func TestObserveRequiresConnectedAndText(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent))

	now := time.Now()
	if s.Observe("", now, true, false) {
		t.Error("empty text should be a no-op")
	}
	if s.Observe("text", time.Time{}, true, false) {
		t.Error("zero timestamp should be a no-op")
	}
	if s.Observe("text", now, false, false) {
		t.Error("disconnected session should not push")
	}
	if len(sent) != 0 {
		t.Errorf("sent = %+v, want none", sent)
	}
}

func TestOptimisticIndicatorWithoutBridge(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent), WithIndicatorTTL(50*time.Millisecond))

	s.Observe("hello", time.Now(), true, false)
	if !s.Synced() {
		t.Fatal("indicator should be set immediately when bridge is unconfirmed")
	}

	time.Sleep(100 * time.Millisecond)
	if s.Synced() {
		t.Error("indicator should auto-clear after TTL")
	}
}

func TestAckDrivenIndicatorWithBridge(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent), WithIndicatorTTL(50*time.Millisecond))

	s.Observe("hello", time.Now(), true, true)
	if s.Synced() {
		t.Fatal("indicator should wait for ack when bridge is ready")
	}

	s.HandleAck(true)
	if !s.Synced() {
		t.Fatal("indicator should be set after successful ack")
	}

	time.Sleep(100 * time.Millisecond)
	if s.Synced() {
		t.Error("indicator should auto-clear after TTL")
	}
}

func TestFailedAckLeavesIndicatorOff(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent))

	s.Observe("hello", time.Now(), true, true)
	s.HandleAck(false)
	if s.Synced() {
		t.Error("failed ack should not light the indicator")
	}
}

func TestRetriggerExtendsIndicator(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent), WithIndicatorTTL(80*time.Millisecond))

	s.Observe("one", time.Now(), true, false)
	time.Sleep(50 * time.Millisecond)
	s.Observe("two", time.Now(), true, false)

	// The first trigger's TTL has elapsed, but the second keeps it visible.
	time.Sleep(50 * time.Millisecond)
	if !s.Synced() {
		t.Error("retrigger should extend visible duration")
	}
	time.Sleep(80 * time.Millisecond)
	if s.Synced() {
		t.Error("indicator should eventually clear")
	}
}

func TestResetClearsSyncState(t *testing.T) {
	var sent []Message
	s := NewSyncer(collectSends(&sent))

	at := time.Now()
	s.Observe("hello", at, true, false)
	s.Reset()

	if s.Synced() {
		t.Error("indicator should clear on reset")
	}
	if !s.LastSyncedAt().IsZero() {
		t.Error("last-synced timestamp should clear on reset")
	}
	// The same timestamp is fresh again after reset.
	if !s.Observe("hello", at, true, false) {
		t.Error("observation should push again after reset")
	}
}

func TestCallbacks(t *testing.T) {
	var pushes int
	var acks []bool
	var sent []Message
	s := NewSyncer(collectSends(&sent),
		WithOnPush(func() { pushes++ }),
		WithOnAck(func(ok bool) { acks = append(acks, ok) }),
	)

	s.Observe("x", time.Now(), true, true)
	s.HandleAck(true)
	s.HandleAck(false)

	if pushes != 1 {
		t.Errorf("pushes = %d, want 1", pushes)
	}
	if len(acks) != 2 || !acks[0] || acks[1] {
		t.Errorf("acks = %v, want [true false]", acks)
	}
}
