// Package rangeapi is the client for the CYROID range backend's console
// endpoints. It fetches the connection parameters for a VM's remote console
// and builds the embedded client and control channel URLs from them.
package rangeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultWebSocketPath is used when the backend omits websocket_path.
const DefaultWebSocketPath = "/websockify"

// maxErrorBodySize caps how much of an error response body is read when
// extracting the detail message.
const maxErrorBodySize = 64 * 1024

// ConnectionInfo holds the connection parameters for one VM console,
// as returned by GET /api/vms/{id}/connection-info.
type ConnectionInfo struct {
	Path          string `json:"path"`
	Hostname      string `json:"hostname"`
	WebSocketPath string `json:"websocket_path,omitempty"`
}

// APIError is a non-success response from the backend. Error() is the
// user-facing message: the body's detail field when present, else a generic
// message with the status code.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("console backend returned HTTP %d", e.StatusCode)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one range backend with a fixed bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for the given backend base URL.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ConnectionInfo fetches the console connection parameters for a VM.
func (c *Client) ConnectionInfo(ctx context.Context, vmID string) (*ConnectionInfo, error) {
	u := fmt.Sprintf("%s/api/vms/%s/connection-info", c.baseURL, url.PathEscape(vmID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch connection info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var info ConnectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse connection info: %w", err)
	}
	if info.Hostname == "" {
		return nil, fmt.Errorf("connection info missing hostname")
	}
	return &info, nil
}

// decodeAPIError extracts the detail message from an error response body.
// Bodies that are not the expected JSON shape fall back to a generic message.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}

// ConsoleURL builds the embedded remote-desktop client URL from connection
// info. The query parameters are fixed: auto-connect on, remote-driven
// resize, visible control bar, and an explicit relay path.
func (c *Client) ConsoleURL(info *ConnectionInfo) string {
	wsPath := info.WebSocketPath
	if wsPath == "" {
		wsPath = DefaultWebSocketPath
	}
	q := url.Values{}
	q.Set("autoconnect", "1")
	q.Set("resize", "remote")
	q.Set("path", strings.TrimPrefix(wsPath, "/"))
	q.Set("show_control_bar", "true")

	u := url.URL{
		Scheme:   c.scheme("https", "http"),
		Host:     info.Hostname,
		Path:     info.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// ChannelURL builds the WebSocket control channel URL for the console.
func (c *Client) ChannelURL(info *ConnectionInfo) string {
	wsPath := info.WebSocketPath
	if wsPath == "" {
		wsPath = DefaultWebSocketPath
	}
	if !strings.HasPrefix(wsPath, "/") {
		wsPath = "/" + wsPath
	}
	u := url.URL{
		Scheme: c.scheme("wss", "ws"),
		Host:   info.Hostname,
		Path:   wsPath,
	}
	return u.String()
}

// scheme picks the secure or plain variant based on the backend base URL, so
// local development backends over http get ws consoles rather than wss.
func (c *Client) scheme(secure, plain string) string {
	if strings.HasPrefix(c.baseURL, "http://") {
		return plain
	}
	return secure
}

// HostPort splits the console hostname into host label and port number.
// A missing port returns 0.
func (i *ConnectionInfo) HostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(i.Hostname)
	if err != nil {
		return i.Hostname, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
