// Package prefs holds client-wide preferences for the console, stored as
// TOML at ~/.config/cyroid/preferences.toml. Everything has a sensible
// default; a missing file is not an error.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Preferences are the tunables the console client honors.
type Preferences struct {
	// ClipboardSync enables pushing local clipboard changes into the console.
	ClipboardSync bool `toml:"clipboard_sync"`
	// ClipboardPollMS is the clipboard poll interval in milliseconds.
	ClipboardPollMS int `toml:"clipboard_poll_ms"`
	// ConnectDeadlineSec is the soft connect deadline in seconds.
	ConnectDeadlineSec int `toml:"connect_deadline_sec"`
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `toml:"metrics_addr,omitempty"`
}

// path allows tests to redirect the preferences file.
var path = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "cyroid", "preferences.toml"), nil
}

// Defaults returns the built-in preferences.
func Defaults() Preferences {
	return Preferences{
		ClipboardSync:      true,
		ClipboardPollMS:    1000,
		ConnectDeadlineSec: 30,
	}
}

// Load reads preferences, applying defaults for a missing file and zero
// values for individually unset fields.
func Load() (Preferences, error) {
	p := Defaults()
	file, err := path()
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read preferences: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse preferences: %w", err)
	}
	if p.ClipboardPollMS <= 0 {
		p.ClipboardPollMS = Defaults().ClipboardPollMS
	}
	if p.ConnectDeadlineSec <= 0 {
		p.ConnectDeadlineSec = Defaults().ConnectDeadlineSec
	}
	return p, nil
}

// Save writes preferences to disk.
func Save(p Preferences) error {
	file, err := path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	return os.WriteFile(file, data, 0600)
}

// ClipboardPollInterval returns the poll interval as a duration.
func (p Preferences) ClipboardPollInterval() time.Duration {
	return time.Duration(p.ClipboardPollMS) * time.Millisecond
}

// ConnectDeadline returns the connect deadline as a duration.
func (p Preferences) ConnectDeadline() time.Duration {
	return time.Duration(p.ConnectDeadlineSec) * time.Second
}
