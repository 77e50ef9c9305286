// Package ui implements the bubbletea dashboard behind cmd/urs-monitor:
// a live table of a hub's device set, refreshed on a tea.Tick the way
// guiperry-HASHER's internal/cli/ui refreshes its resource/health panes.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	urs "github.com/mterrel/utilitaryrs"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Bold(true).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().Padding(0, 1)

	stateStyles = map[urs.State]lipgloss.Style{
		urs.Probing:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C")),
		urs.InfoRequest:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C")),
		urs.Running:      lipgloss.NewStyle().Foreground(lipgloss.Color("#27AE60")),
		urs.FileTransfer: lipgloss.NewStyle().Foreground(lipgloss.Color("#2D9CDB")),
		urs.Suspended:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9B9B9B")),
		urs.Lost:         lipgloss.NewStyle().Foreground(lipgloss.Color("#EB5757")),
	}
)

// HubSource is the slice of *urs.Hub the dashboard reads; narrowed to an
// interface so tests can supply a fake without constructing a real Hub.
type HubSource interface {
	Snapshot() []urs.DeviceSnapshot
}

// Model is the bubbletea model driving the device table.
type Model struct {
	hub      HubSource
	interval time.Duration
	rows     []urs.DeviceSnapshot
	width    int
	quitting bool
	spin     spinner.Model
}

// New builds a Model polling hub every interval.
func New(hub HubSource, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#27AE60"))
	return Model{hub: hub, interval: interval, width: 80, spin: s}
}

type tickMsg time.Time

// RefreshMsg requests an immediate Snapshot re-read outside the regular
// poll tick. An Observer attached to the same hub sends this on every
// event so the table updates the moment something happens rather than
// waiting out the next tick (§4.4 "attaches as an Observer").
type RefreshMsg struct{}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		m.rows = m.hub.Snapshot()
		return m, m.tick()
	case RefreshMsg:
		m.rows = m.hub.Snapshot()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Width(m.width).Render(fmt.Sprintf("%s UtilitaryRS monitor — %d device(s)", m.spin.View(), len(m.rows))))
	b.WriteString("\n")
	b.WriteString(rowStyle.Render(fmt.Sprintf("%-16s %-4s %-12s %-8s %-6s %s", "NAME", "UID", "STATE", "CMD/BLOB", "STRIKE", "VERSION")))
	b.WriteString("\n")
	for _, d := range m.rows {
		style := stateStyles[d.State]
		line := fmt.Sprintf("%-16s 0x%02X %-12s %d/%-6d %-6d %d.%d",
			d.Name, d.UID, style.Render(d.State.String()), d.CommandQueue, d.BlobQueue, d.TimeoutStrike,
			d.Version.SWMajor, d.Version.SWMinor)
		b.WriteString(rowStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Width(m.width).Render("q to quit"))
	return b.String()
}
