// Package tui provides an interactive terminal UI for live ping sessions.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KilimcininKorOglu/sonda/internal/ping"
)

// State represents the current state of the TUI.
type State int

const (
	StateRunning State = iota
	StateComplete
	StateError
)

// targetRow is the live aggregate for one target.
type targetRow struct {
	target   string
	sent     int
	received int
	lastRTT  float64
	sumRTT   float64
	status   string
}

// Model is the Bubble Tea model for the ping TUI.
type Model struct {
	// Configuration
	targets []string
	config  *ping.Config
	width   int
	height  int

	// State
	state     State
	rows      []*targetRow
	index     map[string]*targetRow
	results   []*ping.Result
	err       error
	elapsed   time.Duration
	startTime time.Time

	// UI components
	spinner spinner.Model

	// Styles
	styles Styles

	// Channel for probe updates
	probeChan chan ping.Probe
}

// ProbeMsg is sent when a probe resolves.
type ProbeMsg struct {
	Probe ping.Probe
}

// CompleteMsg is sent when every target is done.
type CompleteMsg struct {
	Results []*ping.Result
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Err error
}

// TickMsg is sent to update elapsed time.
type TickMsg time.Time

// New creates a new TUI model.
func New(targets []string, config *ping.Config) (*Model, error) {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &Model{
		targets:   targets,
		config:    config,
		state:     StateRunning,
		rows:      make([]*targetRow, 0, len(targets)),
		index:     make(map[string]*targetRow, len(targets)),
		spinner:   s,
		styles:    DefaultStyles(),
		width:     80,
		height:    24,
		startTime: time.Now(),
		probeChan: make(chan ping.Probe, 100),
	}
	for _, target := range targets {
		row := &targetRow{target: target, status: "-"}
		m.rows = append(m.rows, row)
		m.index[target] = row
	}
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runPing(),
		m.tickCmd(),
		m.waitForProbe(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.elapsed = time.Since(m.startTime)
		if m.state == StateRunning {
			return m, m.tickCmd()
		}

	case ProbeMsg:
		m.applyProbe(msg.Probe)
		return m, m.waitForProbe()

	case CompleteMsg:
		m.state = StateComplete
		m.results = msg.Results

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// applyProbe folds one probe outcome into its target's row.
func (m *Model) applyProbe(p ping.Probe) {
	row, ok := m.index[p.Target]
	if !ok {
		return
	}
	row.sent++
	row.status = p.Status
	if p.Responded {
		row.received++
		row.lastRTT = p.RTT
		row.sumRTT += p.RTT
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderRows())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the header section.
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("Sonda Ping")

	var status string
	switch m.state {
	case StateRunning:
		status = m.spinner.View() + " Probing..."
	case StateComplete:
		status = m.styles.Success.Render("✓ Complete")
	case StateError:
		status = m.styles.Error.Render("✗ Error")
	}

	info := fmt.Sprintf("Targets: %d | Count: %d | Elapsed: %s",
		len(m.targets), m.config.Count, m.elapsed.Round(100*time.Millisecond))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.styles.Subtle.Render(info),
		status,
	)
}

// renderRows renders the per-target table.
func (m Model) renderRows() string {
	if len(m.rows) == 0 {
		return m.styles.Subtle.Render("Waiting for probes...")
	}

	var rows []string

	header := fmt.Sprintf("%-25s %-6s %-6s %-7s %-11s %-11s %-18s",
		"Target", "Sent", "Recv", "Loss", "Last", "Avg", "Status")
	rows = append(rows, m.styles.Header.Render(header))
	rows = append(rows, m.styles.Subtle.Render(strings.Repeat("─", 80)))

	for _, row := range m.rows {
		rows = append(rows, m.renderRow(row))
	}
	return strings.Join(rows, "\n")
}

// renderRow renders one target's live aggregate line.
func (m Model) renderRow(row *targetRow) string {
	loss := "-"
	if row.sent > 0 {
		loss = fmt.Sprintf("%.0f%%", float64(row.sent-row.received)/float64(row.sent)*100)
	}

	last, avg := "-", "-"
	var avgVal float64
	if row.received > 0 {
		avgVal = row.sumRTT / float64(row.received)
		last = fmt.Sprintf("%.2f ms", row.lastRTT)
		avg = fmt.Sprintf("%.2f ms", avgVal)
	}

	return fmt.Sprintf("%-25s %-6s %-6s %-7s %-11s %-11s %-18s",
		m.styles.Target.Render(truncate(row.target, 25)),
		m.styles.Subtle.Render(fmt.Sprintf("%-6d", row.sent)),
		m.styles.Subtle.Render(fmt.Sprintf("%-6d", row.received)),
		loss,
		m.colorizeRTT(last, row.lastRTT),
		m.colorizeRTT(avg, avgVal),
		m.renderStatus(row.status),
	)
}

// renderStatus styles the most recent probe outcome.
func (m Model) renderStatus(status string) string {
	if status == "ok" {
		return m.styles.Success.Render(status)
	}
	if status == "-" {
		return m.styles.Subtle.Render(status)
	}
	return m.styles.Failure.Render(truncate(status, 18))
}

// colorizeRTT applies color based on latency.
func (m Model) colorizeRTT(s string, rtt float64) string {
	if rtt <= 0 {
		return m.styles.Subtle.Render(s)
	}

	switch {
	case rtt < 50:
		return m.styles.RTTLow.Render(s)
	case rtt < 150:
		return m.styles.RTTMed.Render(s)
	default:
		return m.styles.RTTHigh.Render(s)
	}
}

// renderFooter renders the footer section.
func (m Model) renderFooter() string {
	var parts []string

	if m.state == StateComplete {
		reached := 0
		for _, r := range m.results {
			if r != nil && r.Reached {
				reached++
			}
		}
		parts = append(parts, fmt.Sprintf("Reachable: %d/%d", reached, len(m.targets)))
	}
	parts = append(parts, "Press 'q' to quit")

	return m.styles.Subtle.Render(strings.Join(parts, " | "))
}

// runPing runs the ping session in the background.
func (m Model) runPing() tea.Cmd {
	return func() tea.Msg {
		// Stream probe outcomes to the update loop
		m.config.OnProbe = func(p *ping.Probe) {
			m.probeChan <- *p
		}

		session, err := ping.New(m.config)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		defer session.Close()

		results, err := session.RunMany(context.Background(), m.targets)
		if err != nil && results == nil {
			return ErrorMsg{Err: err}
		}
		return CompleteMsg{Results: results}
	}
}

// waitForProbe waits for the next probe outcome.
func (m Model) waitForProbe() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.probeChan
		if !ok {
			return nil
		}
		return ProbeMsg{Probe: p}
	}
}

// tickCmd returns a command that sends tick messages.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Close releases resources.
func (m *Model) Close() error {
	if m.probeChan != nil {
		close(m.probeChan)
	}
	return nil
}

// truncate truncates a string to maxLen.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
