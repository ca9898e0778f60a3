// Package inject places the clipboard relay script into the embedded
// remote-desktop client's execution context. The embedded client gives no
// readiness signal, so the session retries injection on a fixed schedule;
// every attempt is idempotent via a marker element check.
package inject

import (
	"github.com/JongoDB/cyroid-console/internal/relay"
)

// Outcome is the tri-state result of an injection attempt.
type Outcome int

const (
	// OutcomeBlocked means the embedded context refused access (cross-origin)
	// or is not yet available. Silently absorbed; a later attempt may succeed.
	OutcomeBlocked Outcome = iota
	// OutcomeInjected means the relay script was placed on this attempt.
	OutcomeInjected
	// OutcomeAlreadyInjected means the marker was found; nothing was written.
	OutcomeAlreadyInjected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInjected:
		return "injected"
	case OutcomeAlreadyInjected:
		return "already-injected"
	default:
		return "blocked"
	}
}

// Succeeded reports whether the relay script is in place after this attempt.
func (o Outcome) Succeeded() bool {
	return o == OutcomeInjected || o == OutcomeAlreadyInjected
}

// Region is an insertion point in the embedded document.
type Region int

const (
	RegionHead Region = iota
	RegionBody
	RegionRoot
)

func (r Region) String() string {
	switch r {
	case RegionHead:
		return "head"
	case RegionBody:
		return "body"
	default:
		return "root"
	}
}

// insertionOrder is the fixed preference order for script placement.
var insertionOrder = []Region{RegionHead, RegionBody, RegionRoot}

// Target is the embedded execution context the script is placed into.
// Every method may fail when the context is cross-origin or torn down;
// the injector treats any failure as a blocked attempt.
type Target interface {
	// HasElement reports whether an element with the given identifier exists.
	HasElement(id string) (bool, error)
	// AppendScript inserts a script element carrying the given identifier and
	// source into the region. Fails if the region does not exist.
	AppendScript(region Region, id, source string) error
}

// Injector performs idempotent relay-script injection against a Target.
type Injector struct {
	target   Target
	markerID string
	source   string
}

// New creates an Injector that places the standard relay payload.
func New(target Target) *Injector {
	return &Injector{
		target:   target,
		markerID: relay.MarkerID,
		source:   relay.Script(),
	}
}

// TryInject attempts to place the relay script. The marker check makes
// repeated attempts free: once the script element exists, no further DOM
// writes happen. Regions are tried in head, body, root order; if none accept
// the script the attempt is blocked.
func (in *Injector) TryInject() Outcome {
	present, err := in.target.HasElement(in.markerID)
	if err != nil {
		return OutcomeBlocked
	}
	if present {
		return OutcomeAlreadyInjected
	}
	for _, region := range insertionOrder {
		if err := in.target.AppendScript(region, in.markerID, in.source); err == nil {
			return OutcomeInjected
		}
	}
	return OutcomeBlocked
}
