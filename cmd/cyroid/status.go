package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JongoDB/cyroid-console/internal/daemon"
	"github.com/JongoDB/cyroid-console/internal/ui"
)

// StatusCmd shows the live session dashboard.
type StatusCmd struct {
	Once bool `help:"Print the current state once instead of the live view."`
}

func (c *StatusCmd) Run(globals *CLI) error {
	hostName, err := resolveHost(globals)
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(hostName)
	if err != nil {
		return err
	}

	if c.Once {
		fmt.Println(renderStatus(fetchStatus(hostName, client), ui.MaxWidth))
		return nil
	}

	p := tea.NewProgram(newStatusModel(hostName, client))
	_, err = p.Run()
	return err
}

// statusData is the dashboard's view of a session.
type statusData struct {
	hostName string
	running  bool
	state    *daemon.ConsoleStatus
}

func fetchStatus(hostName string, client *daemon.Client) statusData {
	d := statusData{hostName: hostName}
	state, err := client.Status()
	if err != nil {
		return d
	}
	d.running = true
	d.state = state
	return d
}

// statusModel is the Bubble Tea model for the live dashboard.
type statusModel struct {
	hostName string
	client   *daemon.Client
	data     statusData
	width    int
	quitting bool
}

func newStatusModel(hostName string, client *daemon.Client) statusModel {
	return statusModel{
		hostName: hostName,
		client:   client,
		data:     fetchStatus(hostName, client),
		width:    80,
	}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type refreshMsg struct {
	data statusData
}

func (m statusModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{data: fetchStatus(m.hostName, m.client)}
	}
}

func (m statusModel) Init() tea.Cmd {
	return tickCmd()
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())

	case refreshMsg:
		m.data = msg.data
		return m, nil
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}
	return renderStatus(m.data, m.width)
}

// renderStatus renders the session and clipboard sections.
func renderStatus(d statusData, width int) string {
	if width > ui.MaxWidth {
		width = ui.MaxWidth
	}
	contentWidth := width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	if !d.running {
		return ui.Section("Session",
			fmt.Sprintf("No session for host %q. Run 'cyroid connect <vm>'.", d.hostName),
			contentWidth)
	}

	s := d.state
	var lines []string
	lines = append(lines, ui.Row("HOST", d.hostName, "STATUS", ui.StatusDot(s.Status)+" "+s.Status, contentWidth))
	lines = append(lines, ui.Row("VM", s.VM, "UPTIME", formatDuration(time.Since(s.StartedAt)), contentWidth))
	if s.LastError != "" {
		lines = append(lines, ui.Row("LAST ERROR", s.LastError, "", "", contentWidth))
	}
	if s.ConsoleURL != "" {
		lines = append(lines, ui.Row("CONSOLE", s.ConsoleURL, "", "", contentWidth))
	}
	sections := []string{ui.Section("Session", strings.Join(lines, "\n"), contentWidth)}

	var clip []string
	bridge := "not injected"
	switch {
	case s.BridgeReady:
		bridge = ui.Dot(ui.StateConnected) + " ready"
	case s.BridgeInjected:
		bridge = ui.Dot(ui.StateTimeout) + " injected"
	}
	clip = append(clip, ui.Row("BRIDGE", bridge, "", "", contentWidth))
	synced := "-"
	if s.Synced {
		synced = ui.Dot(ui.StateConnected) + " synced"
	} else if !s.LastSyncedAt.IsZero() {
		synced = fmt.Sprintf("%s ago", formatDuration(time.Since(s.LastSyncedAt)))
	}
	clip = append(clip, ui.Row("CLIPBOARD", synced, "", "", contentWidth))
	sections = append(sections, ui.Section("Clipboard relay", strings.Join(clip, "\n"), contentWidth))

	return strings.Join(sections, "\n")
}

// formatDuration formats a duration as a compact human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", h, m)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, h)
}
