// Package mockconsole is an in-process remote-desktop console endpoint used
// by tests and `cyroid connect --mock`. It implements the embedded side of
// the clipboard relay: script injection against a fake document, a relay
// handler created exactly once per document, and selector-based clipboard
// placement with acknowledgments.
package mockconsole

import (
	"errors"
	"sync"

	"github.com/JongoDB/cyroid-console/internal/inject"
)

// Control is an input element the relay script can write clipboard text to.
type Control struct {
	Selector      string
	Value         string
	Notifications int // synthetic input/change events observed
}

// DocOption configures a Document.
type DocOption func(*Document)

// WithControl adds a clipboard input control matching the given selector.
func WithControl(selector string) DocOption {
	return func(d *Document) {
		d.controls = append(d.controls, &Control{Selector: selector})
	}
}

// WithoutRegion removes an insertion region, simulating a partially built
// document.
func WithoutRegion(r inject.Region) DocOption {
	return func(d *Document) { delete(d.regions, r) }
}

// CrossOrigin makes every document access fail, simulating an embedded
// client on a foreign origin.
func CrossOrigin() DocOption {
	return func(d *Document) { d.crossOrigin = true }
}

// Document is the embedded client's fake DOM: insertion regions, elements by
// identifier, and candidate clipboard controls.
type Document struct {
	mu          sync.Mutex
	regions     map[inject.Region]bool
	elements    map[string]string // id → script source
	controls    []*Control
	crossOrigin bool

	// handler state: created at most once per document, regardless of how
	// many times the relay script is appended.
	handlerCreated bool
	readySignals   int
}

var errCrossOrigin = errors.New("cross-origin access denied")

// NewDocument creates a document with head, body, and root regions.
func NewDocument(opts ...DocOption) *Document {
	d := &Document{
		regions: map[inject.Region]bool{
			inject.RegionHead: true,
			inject.RegionBody: true,
			inject.RegionRoot: true,
		},
		elements: make(map[string]string),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// HasElement reports whether an element with the identifier exists.
func (d *Document) HasElement(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.crossOrigin {
		return false, errCrossOrigin
	}
	_, ok := d.elements[id]
	return ok, nil
}

// AppendScript inserts a script element. Appending the relay script creates
// the protocol handler; the handlerCreated latch keeps repeated appends from
// creating (and announcing) it again.
func (d *Document) AppendScript(region inject.Region, id, source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.crossOrigin {
		return errCrossOrigin
	}
	if !d.regions[region] {
		return errors.New("region unavailable: " + region.String())
	}
	d.elements[id] = source

	announce := !d.handlerCreated
	d.handlerCreated = true
	if announce {
		d.readySignals++
	}
	return nil
}

// ConsumeReady returns true once per pending ready announcement. The server
// drains this to emit the ready signal exactly as many times as the handler
// was created, which is at most once.
func (d *Document) ConsumeReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readySignals > 0 {
		d.readySignals--
		return true
	}
	return false
}

// ApplyClipboard places text into the first control matching the prioritized
// selector list and dispatches synthetic notifications. Returns false when no
// control matches.
func (d *Document) ApplyClipboard(text string, selectors []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.crossOrigin {
		return false
	}
	for _, sel := range selectors {
		for _, ctl := range d.controls {
			if ctl.Selector == sel {
				ctl.Value = text
				ctl.Notifications++
				return true
			}
		}
	}
	return false
}

// ControlValue returns the current value of the control with the selector.
func (d *Document) ControlValue(selector string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ctl := range d.controls {
		if ctl.Selector == selector {
			return ctl.Value, true
		}
	}
	return "", false
}

// ScriptCount returns the number of distinct script elements in the document.
func (d *Document) ScriptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.elements)
}
