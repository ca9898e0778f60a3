package daemon

import "time"

// Request is sent from a client (cyroid status, cyroid reload) to the session
// supervisor over the Unix socket.
type Request struct {
	Method string `json:"method"` // "status", "reload", or "shutdown"
}

// Response is sent from the supervisor back to the client.
type Response struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	State *ConsoleStatus `json:"state,omitempty"`
}

// ConsoleStatus is the live session state returned by the "status" method.
type ConsoleStatus struct {
	PID            int       `json:"pid"`
	Host           string    `json:"host"`
	VM             string    `json:"vm"`
	Status         string    `json:"status"` // connecting, connected, timeout, error
	LastError      string    `json:"last_error,omitempty"`
	ConsoleURL     string    `json:"console_url,omitempty"`
	BridgeInjected bool      `json:"bridge_injected"`
	BridgeReady    bool      `json:"bridge_ready"`
	Synced         bool      `json:"synced"`
	LastSyncedAt   time.Time `json:"last_synced_at,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}
