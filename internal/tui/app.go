// Package tui is an interactive dashboard for the daemon's windows.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winhost/internal/commands"
)

// refreshInterval is how often the status is polled.
const refreshInterval = 500 * time.Millisecond

// Controller is the daemon surface the dashboard drives.
type Controller interface {
	ShowWindow() error
	HideWindow() error
	ToggleWindow() (bool, error)
	ClosePluginWindow() error
	Reload() error
	GetStatus() (*commands.Status, error)
}

type statusMsg struct {
	status *commands.Status
	err    error
}

type actionMsg struct {
	label string
	err   error
}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// model is the root bubbletea model for the dashboard.
type model struct {
	ctl       Controller
	status    *commands.Status
	connected bool
	lastError string
	lastInfo  string

	width  int
	height int
}

func newModel(ctl Controller) model {
	return model{ctl: ctl}
}

func (m model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		st, err := m.ctl.GetStatus()
		return statusMsg{status: st, err: err}
	}
}

func (m model) run(label string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{label: label, err: fn()}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "s":
			return m, m.run("show window", m.ctl.ShowWindow)
		case "h":
			return m, m.run("hide window", m.ctl.HideWindow)
		case "t", " ":
			return m, m.run("toggle window", func() error {
				_, err := m.ctl.ToggleWindow()
				return err
			})
		case "c":
			return m, m.run("close plugin window", m.ctl.ClosePluginWindow)
		case "r":
			return m, m.run("reload config", m.ctl.Reload)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())

	case statusMsg:
		if msg.err != nil {
			m.connected = false
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.connected = true
		m.status = msg.status
		if strings.HasPrefix(m.lastError, "failed to connect") {
			m.lastError = ""
		}

	case actionMsg:
		if msg.err != nil {
			m.lastError = fmt.Sprintf("%s: %v", msg.label, msg.err)
			m.lastInfo = ""
		} else {
			m.lastError = ""
			m.lastInfo = msg.label + ": ok"
		}
		return m, m.fetchStatus()
	}
	return m, nil
}

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("winhost"))
	b.WriteString("  ")
	if m.connected {
		b.WriteString(okStyle.Render("● daemon connected"))
	} else {
		b.WriteString(errStyle.Render("○ daemon not reachable"))
	}
	b.WriteString("\n\n")

	b.WriteString(boxStyle.Render(renderStatus(m.status)))
	b.WriteString("\n")

	if m.lastError != "" {
		b.WriteString(errStyle.Render(m.lastError))
		b.WriteString("\n")
	} else if m.lastInfo != "" {
		b.WriteString(okStyle.Render(m.lastInfo))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("s show · h hide · t toggle · c close plugin · r reload · q quit"))
	return b.String()
}

func renderStatus(st *commands.Status) string {
	if st == nil {
		return dimStyle.Render("no status yet")
	}
	lines := []string{
		fmt.Sprintf("primary window  %s", primaryState(st)),
	}
	if st.PrimarySize != nil {
		lines = append(lines, fmt.Sprintf("size            %gx%g", st.PrimarySize.Width, st.PrimarySize.Height))
	}
	plugin := st.PluginWindow.State
	if st.PluginWindow.PluginName != "" {
		plugin += " (" + st.PluginWindow.PluginName + ")"
	}
	lines = append(lines,
		fmt.Sprintf("plugin window   %s", plugin),
		fmt.Sprintf("delivery        %s, ready=%v, in flight=%v", st.PluginWindow.Mode, st.PluginWindow.ContentReady, st.PluginWindow.Delivering),
		fmt.Sprintf("uptime          %s", time.Duration(st.UptimeSeconds)*time.Second),
	)
	return strings.Join(lines, "\n")
}

func primaryState(st *commands.Status) string {
	switch {
	case !st.PrimaryExists:
		return "missing"
	case st.PrimaryVisible:
		return "visible"
	default:
		return "hidden"
	}
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctl Controller) error {
	_, err := tea.NewProgram(newModel(ctl), tea.WithAltScreen()).Run()
	return err
}
