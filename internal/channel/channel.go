// Package channel carries relay and control messages between the console
// supervisor and the embedded remote-desktop client over a WebSocket. Sends
// are broadcast-style: no origin restriction is enforced, and unknown or
// malformed inbound messages are dropped without error.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JongoDB/cyroid-console/internal/relay"
)

const defaultControlTimeout = 5 * time.Second

// Channel is one control connection to an embedded console.
type Channel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Control

	controlTimeout time.Duration
}

// Dial connects to the console's control endpoint.
func Dial(ctx context.Context, wsURL string) (*Channel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial console channel %s: %w", wsURL, err)
	}
	return newChannel(conn), nil
}

// NewFromConn wraps an established WebSocket connection. Used by the mock
// console and in tests.
func NewFromConn(conn *websocket.Conn) *Channel {
	return newChannel(conn)
}

func newChannel(conn *websocket.Conn) *Channel {
	return &Channel{
		conn:           conn,
		pending:        make(map[string]chan Control),
		controlTimeout: defaultControlTimeout,
	}
}

// Send delivers a relay message. Best-effort: the caller treats failures as
// absorbed, matching the broadcast semantics of the protocol.
func (c *Channel) Send(m relay.Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Channel) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Run reads inbound messages until the connection closes or ctx is done.
// Control replies are routed to their waiting callers; relay messages go to
// onRelay; everything else is ignored.
func (c *Channel) Run(ctx context.Context, onRelay func(relay.Message)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("console channel read: %w", err)
		}
		if ctl, ok := DecodeControl(data); ok && ctl.isReply() {
			c.resolve(ctl)
			continue
		}
		if m, ok := relay.Decode(data); ok {
			onRelay(m)
		}
	}
}

// Close tears down the connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// call sends a control request and waits for the matching reply.
func (c *Channel) call(req Control) (Control, error) {
	ch := make(chan Control, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
	}()

	data, err := req.Encode()
	if err != nil {
		return Control{}, err
	}
	if err := c.write(data); err != nil {
		return Control{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-time.After(c.controlTimeout):
		return Control{}, fmt.Errorf("control %s: reply timeout", req.Control)
	}
}

func (c *Channel) resolve(reply Control) {
	c.pendingMu.Lock()
	ch, ok := c.pending[reply.ID]
	c.pendingMu.Unlock()
	if ok {
		select {
		case ch <- reply:
		default:
		}
	}
}
