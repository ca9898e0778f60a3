// Package console supervises one remote-console session: it fetches
// connection parameters, tracks the connection state machine, arms the
// connect deadline, schedules bridge-injection attempts, and feeds clipboard
// observations into the relay syncer.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JongoDB/cyroid-console/internal/inject"
	"github.com/JongoDB/cyroid-console/internal/relay"
)

const (
	// connectDeadline is the single-shot soft deadline for the embedded
	// client to finish loading. Elapsing it is a warning, not a failure.
	connectDeadline = 30 * time.Second

	// loadErrorMessage is the fixed message for embedded load failures; the
	// embedded client gives no structured error to relay.
	loadErrorMessage = "remote console failed to load"
)

// injectionSchedule is the fixed offsets, after the embedded client loads, at
// which injection is attempted. The client's internal startup time is not
// observable from outside, so bounded polling stands in for a readiness
// callback. Attempts are no-ops once injection has succeeded.
var injectionSchedule = []time.Duration{
	500 * time.Millisecond,
	1500 * time.Millisecond,
	3 * time.Second,
	5 * time.Second,
	8 * time.Second,
}

// ConnectionInfo is the session's view of the fetched connection parameters.
// Replaced wholesale on reload.
type ConnectionInfo struct {
	TargetURL    string // embedded client URL with fixed query parameters
	ChannelURL   string // control channel (WebSocket) URL
	ResourcePath string
	HostLabel    string
	PortNumber   int
}

// BridgeState tracks the relay script's lifecycle. Injected is a one-way
// latch per session epoch; Ready is set by the embedded script's own signal
// and is independent of injection success, since the signal is the
// authoritative proof.
type BridgeState struct {
	Injected bool
	Ready    bool
}

// FetchFunc retrieves connection parameters from the range backend.
type FetchFunc func(ctx context.Context) (ConnectionInfo, error)

// Injector attempts to place the relay script into the embedded context.
type Injector interface {
	TryInject() inject.Outcome
}

// Snapshot is a point-in-time copy of session state for display.
type Snapshot struct {
	ID           string
	Target       string
	Status       Status
	LastError    string
	Info         ConnectionInfo
	Bridge       BridgeState
	Synced       bool
	LastSyncedAt time.Time
	StartedAt    time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithDeadline overrides the connect deadline. Used in tests.
func WithDeadline(d time.Duration) Option {
	return func(s *Session) { s.deadline = d }
}

// WithInjectionSchedule overrides the injection retry offsets. Used in tests.
func WithInjectionSchedule(offsets []time.Duration) Option {
	return func(s *Session) { s.schedule = offsets }
}

// WithOnChange sets a callback invoked after every state change. The
// callback runs under the session lock and must not call back into it.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithOnInject sets a callback invoked for every injection attempt outcome.
func WithOnInject(fn func(inject.Outcome)) Option {
	return func(s *Session) { s.onInject = fn }
}

// Session is the connection manager for one (VM target, credential) pair.
// All mutable state is owned by the session and mutated only through its own
// methods; timer callbacks carry the epoch they were armed in and act only if
// it is still current, so a reload invalidates everything pending.
type Session struct {
	mu sync.Mutex

	id       string
	target   string
	fetch    FetchFunc
	injector Injector
	syncer   *relay.Syncer

	status    Status
	lastError string
	info      ConnectionInfo
	bridge    BridgeState
	startedAt time.Time

	epoch         int
	deadlineTimer *time.Timer
	deadline      time.Duration
	schedule      []time.Duration

	onChange func(Snapshot)
	onInject func(inject.Outcome)
}

// New creates a Session for the given VM target. The injector may be attached
// later via Attach once the control channel exists.
func New(target string, fetch FetchFunc, syncer *relay.Syncer, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New().String(),
		target:   target,
		fetch:    fetch,
		syncer:   syncer,
		status:   StatusConnecting,
		deadline: connectDeadline,
		schedule: injectionSchedule,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Attach sets the injector used by scheduled injection attempts. Called once
// the control channel to the embedded client is up.
func (s *Session) Attach(in Injector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injector = in
}

// Open fetches connection parameters and arms the connect deadline. On fetch
// failure the session transitions to error with the backend's message; the
// failure is terminal for this attempt and only Reload recovers.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	ep := s.epoch
	s.stopDeadlineLocked()
	s.transitionLocked(StatusConnecting)
	s.lastError = ""
	s.bridge = BridgeState{}
	s.info = ConnectionInfo{}
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	s.syncer.Reset()
	fetch := s.fetch
	s.mu.Unlock()

	info, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != ep {
		// A reload superseded this open while the fetch was in flight.
		return nil
	}
	if err != nil {
		s.transitionLocked(StatusError)
		s.lastError = err.Error()
		return err
	}
	s.info = info
	s.deadlineTimer = time.AfterFunc(s.deadline, func() { s.handleDeadline(ep) })
	return nil
}

// HandleLoad records that the embedded client finished loading: the deadline
// is cancelled, the session becomes connected, and the bounded sequence of
// injection attempts is scheduled. A late load after a soft timeout still
// wins.
func (s *Session) HandleLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopDeadlineLocked()
	if !s.transitionLocked(StatusConnected) {
		return
	}
	ep := s.epoch
	for _, offset := range s.schedule {
		time.AfterFunc(offset, func() { s.attemptInject(ep) })
	}
}

// HandleLoadError records an embedded client load failure.
func (s *Session) HandleLoadError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopDeadlineLocked()
	s.transitionLocked(StatusError)
	s.lastError = loadErrorMessage
}

// KeepWaiting reverts a soft timeout: the user chose to keep the session.
func (s *Session) KeepWaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusTimeout {
		s.transitionLocked(StatusConnected)
	}
}

// Reload tears down the current attempt and starts a fresh load cycle:
// pending timers are invalidated, bridge state resets, and connection
// parameters are fetched again.
func (s *Session) Reload(ctx context.Context) error {
	return s.Open(ctx)
}

// HandleReady records the embedded relay script's initialization signal.
// At most one ready source is trusted per session epoch; repeats are no-ops.
func (s *Session) HandleReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bridge.Ready {
		s.bridge.Ready = true
		s.notifyLocked()
	}
}

// HandleMessage dispatches a decoded relay message from the control channel.
// Push messages flow host→embedded only and are ignored here.
func (s *Session) HandleMessage(m relay.Message) {
	switch m.Kind {
	case relay.KindReady:
		s.HandleReady()
	case relay.KindAck:
		s.syncer.HandleAck(m.Success)
	}
}

// ObserveClipboard feeds a clipboard source snapshot into the relay syncer,
// sampling connection and bridge state under the session lock.
func (s *Session) ObserveClipboard(text string, copiedAt time.Time) {
	s.mu.Lock()
	connected := s.status == StatusConnected
	ready := s.bridge.Ready
	s.mu.Unlock()
	s.syncer.Observe(text, copiedAt, connected, ready)
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           s.id,
		Target:       s.target,
		Status:       s.status,
		LastError:    s.lastError,
		Info:         s.info,
		Bridge:       s.bridge,
		Synced:       s.syncer.Synced(),
		LastSyncedAt: s.syncer.LastSyncedAt(),
		StartedAt:    s.startedAt,
	}
}

// handleDeadline fires when the connect deadline elapses. A stale epoch means
// a reload happened; a status other than connecting means the load already
// resolved the race.
func (s *Session) handleDeadline(ep int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != ep || s.status != StatusConnecting {
		return
	}
	s.transitionLocked(StatusTimeout)
}

// attemptInject runs one scheduled injection attempt. A no-op once the latch
// is set; blocked outcomes are absorbed and the next attempt retries.
func (s *Session) attemptInject(ep int) {
	s.mu.Lock()
	if s.epoch != ep || s.bridge.Injected || s.injector == nil {
		s.mu.Unlock()
		return
	}
	injector := s.injector
	s.mu.Unlock()

	outcome := injector.TryInject()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onInject != nil {
		s.onInject(outcome)
	}
	if s.epoch != ep {
		return
	}
	if outcome.Succeeded() && !s.bridge.Injected {
		s.bridge.Injected = true
		s.notifyLocked()
	}
}

// transitionLocked applies a guarded status change. Illegal transitions are
// dropped and reported false.
func (s *Session) transitionLocked(next Status) bool {
	if s.status == next {
		return false
	}
	if !s.status.canTransition(next) {
		return false
	}
	s.status = next
	if next != StatusError {
		s.lastError = ""
	}
	s.notifyLocked()
	return true
}

func (s *Session) stopDeadlineLocked() {
	if s.deadlineTimer != nil {
		s.deadlineTimer.Stop()
		s.deadlineTimer = nil
	}
}

func (s *Session) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.snapshotLocked())
	}
}
