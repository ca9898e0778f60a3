package relay

import (
	"sync"
	"time"
)

const defaultIndicatorTTL = 2 * time.Second

// SendFunc delivers an encoded relay message to the embedded client.
// Delivery is broadcast-style and best-effort; errors are absorbed.
type SendFunc func(Message) error

// Option configures a Syncer.
type Option func(*Syncer)

// WithIndicatorTTL sets how long the synced indicator stays visible.
func WithIndicatorTTL(d time.Duration) Option {
	return func(s *Syncer) { s.indicatorTTL = d }
}

// WithOnPush sets a callback invoked after each push is sent.
func WithOnPush(fn func()) Option {
	return func(s *Syncer) { s.onPush = fn }
}

// WithOnAck sets a callback invoked for each acknowledgment received.
func WithOnAck(fn func(success bool)) Option {
	return func(s *Syncer) { s.onAck = fn }
}

// Syncer is the host side of the clipboard relay protocol. It observes the
// external clipboard source and pushes each new text to the embedded client
// exactly once, tracked by the source's copy timestamp. Rapid successive
// updates collapse to the latest text; nothing is queued.
type Syncer struct {
	mu           sync.Mutex
	send         SendFunc
	lastSyncedAt time.Time
	indicator    bool
	indicatorGen int
	indicatorTTL time.Duration
	awaitingAck  bool
	onPush       func()
	onAck        func(success bool)
}

// NewSyncer creates a Syncer that delivers pushes via send.
func NewSyncer(send SendFunc, opts ...Option) *Syncer {
	s := &Syncer{
		send:         send,
		indicatorTTL: defaultIndicatorTTL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Observe reacts to a clipboard source snapshot. A push is sent only when the
// copy timestamp has advanced past the last synced one, the session is
// connected, and the text is non-empty. When the bridge has confirmed
// readiness the synced indicator waits for the acknowledgment; otherwise it is
// set optimistically, since many embedded clients relay fine without ever
// announcing themselves. Returns true if a push was sent.
func (s *Syncer) Observe(text string, copiedAt time.Time, connected, bridgeReady bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" || copiedAt.IsZero() {
		return false
	}
	if !copiedAt.After(s.lastSyncedAt) {
		return false
	}
	if !connected {
		return false
	}

	// Record the timestamp before sending: the intent is consumed either way,
	// and a superseded text must never be re-sent later.
	s.lastSyncedAt = copiedAt
	_ = s.send(Push(text))
	if s.onPush != nil {
		s.onPush()
	}

	if bridgeReady {
		s.awaitingAck = true
	} else {
		s.setIndicatorLocked()
	}
	return true
}

// HandleAck processes a delivery acknowledgment from the embedded relay.
// Acks are feedback only, never proof the text landed; a success simply
// lights the indicator. Unsolicited or repeated acks are harmless.
func (s *Syncer) HandleAck(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.awaitingAck = false
	if s.onAck != nil {
		s.onAck(success)
	}
	if success {
		s.setIndicatorLocked()
	}
}

// Synced reports whether the synced indicator is currently visible.
func (s *Syncer) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator
}

// LastSyncedAt returns the copy timestamp of the last pushed text.
func (s *Syncer) LastSyncedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncedAt
}

// Reset clears all sync state. Called on session reload.
func (s *Syncer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncedAt = time.Time{}
	s.indicator = false
	s.indicatorGen++
	s.awaitingAck = false
}

// setIndicatorLocked lights the indicator and schedules its auto-clear.
// The generation counter makes the clear apply only to the latest trigger,
// so a retrigger extends the visible duration instead of truncating it.
func (s *Syncer) setIndicatorLocked() {
	s.indicator = true
	s.indicatorGen++
	gen := s.indicatorGen
	time.AfterFunc(s.indicatorTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.indicatorGen == gen {
			s.indicator = false
		}
	})
}
