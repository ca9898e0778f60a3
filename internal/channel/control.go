package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JongoDB/cyroid-console/internal/inject"
)

// Control message verbs. Requests flow host→console, replies console→host,
// correlated by ID.
const (
	ControlQueryMarker  = "query-marker"
	ControlMarkerResult = "marker-result"
	ControlAppendScript = "append-script"
	ControlAppendResult = "append-result"
)

// Control is the wire shape for script-injection control messages. A single
// struct covers requests and replies; unused fields stay empty.
type Control struct {
	Control  string `json:"control"`
	ID       string `json:"id"`
	Marker   string `json:"marker,omitempty"`
	Region   string `json:"region,omitempty"`
	ScriptID string `json:"script_id,omitempty"`
	Source   string `json:"source,omitempty"`
	Present  *bool  `json:"present,omitempty"`
	OK       *bool  `json:"ok,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Encode serializes the control message.
func (c Control) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeControl parses a control message. Non-control payloads return
// ok=false.
func DecodeControl(data []byte) (Control, bool) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, false
	}
	if c.Control == "" || c.ID == "" {
		return Control{}, false
	}
	return c, true
}

func (c Control) isReply() bool {
	return c.Control == ControlMarkerResult || c.Control == ControlAppendResult
}

// regionNames maps injection regions to their wire names.
var regionNames = map[inject.Region]string{
	inject.RegionHead: "head",
	inject.RegionBody: "body",
	inject.RegionRoot: "root",
}

// RegionFromName resolves a wire region name. Used by console-side handlers.
func RegionFromName(name string) (inject.Region, bool) {
	for r, n := range regionNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// ScriptTarget adapts the channel to the injector's Target interface: marker
// queries and script appends become control round-trips. Any transport or
// console-side failure surfaces as an error, which the injector absorbs as a
// blocked attempt.
type ScriptTarget struct {
	ch *Channel
}

// ScriptTarget returns an injection target backed by this channel.
func (c *Channel) ScriptTarget() *ScriptTarget {
	return &ScriptTarget{ch: c}
}

// HasElement queries the embedded document for an element by identifier.
func (t *ScriptTarget) HasElement(id string) (bool, error) {
	reply, err := t.ch.call(Control{
		Control: ControlQueryMarker,
		ID:      uuid.New().String(),
		Marker:  id,
	})
	if err != nil {
		return false, err
	}
	if reply.Error != "" {
		return false, errors.New(reply.Error)
	}
	if reply.Present == nil {
		return false, errors.New("marker-result missing present field")
	}
	return *reply.Present, nil
}

// AppendScript inserts a script element into the given document region.
func (t *ScriptTarget) AppendScript(region inject.Region, id, source string) error {
	reply, err := t.ch.call(Control{
		Control:  ControlAppendScript,
		ID:       uuid.New().String(),
		Region:   regionNames[region],
		ScriptID: id,
		Source:   source,
	})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	if reply.OK == nil || !*reply.OK {
		return fmt.Errorf("append to %s rejected", regionNames[region])
	}
	return nil
}
