// Package relay implements the clipboard relay protocol spoken between the
// console supervisor and the relay script injected into the embedded
// remote-desktop client. The protocol is one-directional (host→embedded)
// text delivery with best-effort acknowledgment.
package relay

import "encoding/json"

// Kind identifies one of the three relay message shapes.
type Kind int

const (
	KindInvalid Kind = iota
	// KindReady is sent by the injected script once it is listening.
	KindReady
	// KindPush carries clipboard text from the host to the embedded client.
	KindPush
	// KindAck reports the outcome of the most recent push.
	KindAck
)

// Wire tags. These match what the injected script emits and expects.
const (
	typeReady       = "clipboard-bridge-ready"
	typeAck         = "clipboard-ack"
	actionClipboard = "clipboard"
)

// Message is the decoded form of a relay wire message.
type Message struct {
	Kind    Kind
	Text    string // KindPush only
	Success bool   // KindAck only
}

// Ready returns the embedded→host initialization announcement.
func Ready() Message { return Message{Kind: KindReady} }

// Push returns a host→embedded clipboard delivery request.
func Push(text string) Message { return Message{Kind: KindPush, Text: text} }

// Ack returns the embedded→host delivery outcome.
func Ack(success bool) Message { return Message{Kind: KindAck, Success: success} }

// envelope is a superset of all three wire shapes.
type envelope struct {
	Type    string  `json:"type,omitempty"`
	Action  string  `json:"action,omitempty"`
	Text    *string `json:"text,omitempty"`
	Success *bool   `json:"success,omitempty"`
}

// Encode serializes the message to its wire shape.
func (m Message) Encode() ([]byte, error) {
	var env envelope
	switch m.Kind {
	case KindReady:
		env.Type = typeReady
	case KindPush:
		env.Action = actionClipboard
		text := m.Text
		env.Text = &text
	case KindAck:
		env.Type = typeAck
		success := m.Success
		env.Success = &success
	}
	return json.Marshal(env)
}

// Decode parses a wire message. Messages that do not match one of the three
// known shapes return ok=false and are ignored by callers; malformed input is
// never an error.
func Decode(data []byte) (Message, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, false
	}
	switch {
	case env.Type == typeReady:
		return Ready(), true
	case env.Type == typeAck && env.Success != nil:
		return Ack(*env.Success), true
	case env.Action == actionClipboard && env.Text != nil:
		return Push(*env.Text), true
	}
	return Message{}, false
}
