package main

import (
	"strings"
	"testing"
	"time"

	"github.com/JongoDB/cyroid-console/internal/daemon"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{26 * time.Hour, "1d 2h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderStatusNoSession(t *testing.T) {
	out := renderStatus(statusData{hostName: "lab"}, 80)
	if !strings.Contains(out, "No session") {
		t.Errorf("renderStatus = %q, want no-session notice", out)
	}
}

func TestRenderStatusRunning(t *testing.T) {
	d := statusData{
		hostName: "lab",
		running:  true,
		state: &daemon.ConsoleStatus{
			PID:         123,
			Host:        "lab",
			VM:          "vm-7",
			Status:      "connected",
			ConsoleURL:  "https://range.example.com/console/",
			BridgeReady: true,
			StartedAt:   time.Now().Add(-time.Minute),
		},
	}
	out := renderStatus(d, 80)
	for _, want := range []string{"vm-7", "connected", "ready", "Clipboard relay"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderStatus missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderStatusErrorState(t *testing.T) {
	d := statusData{
		hostName: "lab",
		running:  true,
		state: &daemon.ConsoleStatus{
			VM:        "vm-7",
			Status:    "error",
			LastError: "VM not found",
			StartedAt: time.Now(),
		},
	}
	out := renderStatus(d, 80)
	if !strings.Contains(out, "VM not found") {
		t.Errorf("renderStatus missing error detail in:\n%s", out)
	}
}
