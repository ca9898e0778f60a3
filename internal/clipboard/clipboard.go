// Package clipboard provides the external clipboard source consumed by the
// console session: the current text plus the time it was copied. The session
// only reads snapshots and reacts to timestamp changes; it never writes the
// system clipboard.
package clipboard

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const defaultPollInterval = time.Second

// Snapshot is one observation of the clipboard source.
type Snapshot struct {
	Text     string
	CopiedAt time.Time
}

// ReadFunc returns the current clipboard text.
type ReadFunc func() (string, error)

// Option configures a Source.
type Option func(*Source)

// WithReader overrides the clipboard read function. Used in tests.
func WithReader(fn ReadFunc) Option {
	return func(s *Source) { s.read = fn }
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *Source) { s.interval = d }
}

// Source polls the system clipboard and emits a snapshot whenever the text
// changes. The first read primes the baseline without emitting, so whatever
// was on the clipboard before the session opened is not synced.
type Source struct {
	read     ReadFunc
	interval time.Duration
	now      func() time.Time

	last   string
	primed bool
}

// NewSource creates a clipboard source backed by the system clipboard.
func NewSource(opts ...Option) *Source {
	s := &Source{
		read:     readSystemClipboard,
		interval: defaultPollInterval,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run polls until ctx is done, invoking onCopy for each change. Read errors
// are skipped; the next tick retries.
func (s *Source) Run(ctx context.Context, onCopy func(Snapshot)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(onCopy)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.poll(onCopy)
		}
	}
}

func (s *Source) poll(onCopy func(Snapshot)) {
	text, err := s.read()
	if err != nil {
		return
	}
	if !s.primed {
		s.primed = true
		s.last = text
		return
	}
	if text == s.last {
		return
	}
	s.last = text
	if text == "" {
		return
	}
	onCopy(Snapshot{Text: text, CopiedAt: s.now()})
}

// readSystemClipboard reads the clipboard via the platform paste tool.
func readSystemClipboard() (string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbpaste")
	case "linux":
		switch {
		case commandExists("wl-paste"):
			cmd = exec.Command("wl-paste", "--no-newline")
		case commandExists("xclip"):
			cmd = exec.Command("xclip", "-selection", "clipboard", "-out")
		default:
			cmd = exec.Command("xsel", "--clipboard", "--output")
		}
	default:
		return "", fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
