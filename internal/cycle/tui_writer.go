package cycle

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"fcc-kernel/internal/config"
	"fcc-kernel/internal/safety"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a cycle log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries a safety event log line.
type eventMsg struct{ line string }

// snapshotMsg carries the latest safety monitor snapshot.
type snapshotMsg struct{ snap safety.Snapshot }

const maxLogLines = 500

// TUIWriter renders cycle telemetry using a bubbletea TUI.
type TUIWriter struct {
	program  teaProgram
	done     chan struct{}
	snapshot func() safety.Snapshot
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. The
// snapshot function supplies live safety state for the header.
func NewTUIWriter(cfg *config.KernelConfig, snapshot func() safety.Snapshot) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{}), snapshot: snapshot}
	m := newTUIModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if proc, err := os.FindProcess(os.Getpid()); err == nil {
			_ = proc.Signal(os.Interrupt)
		}
	}()
	return w
}

// Write implements CycleWriter.
func (w *TUIWriter) Write(row CycleRow) error {
	voteLabel := "2oo3"
	if !row.VoteOK {
		voteLabel = "MISMATCH"
	}
	line := fmt.Sprintf("[t=%8d us] tick=%-6d part=%-14s state=%-8s vote=%-8s act=%-5v L=%+.4f R=%+.4f lat=%dus coh=%.2f",
		row.TUs, row.Tick, row.Partition, row.State, voteLabel, row.Actuated,
		row.ElevonL, row.ElevonR, row.LatencyUS, row.Coherence)
	w.program.Send(logMsg{line: line})
	if w.snapshot != nil {
		w.program.Send(snapshotMsg{snap: w.snapshot()})
	}
	return nil
}

// WriteBatch outputs multiple cycle rows.
func (w *TUIWriter) WriteBatch(rows []CycleRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row EventRow) error {
	line := fmt.Sprintf("[t=%8d us] %s state=%s %s", row.TUs, strings.ToUpper(row.Kind), row.State, row.Detail)
	w.program.Send(eventMsg{line: line})
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *TUIWriter) WriteEvents(rows []EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// Close stops the TUI program and waits for it to exit.
func (w *TUIWriter) Close() error {
	w.program.Send(tea.Quit())
	if w.done != nil {
		<-w.done
	}
	return nil
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	safeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	unsafeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tuiModel struct {
	cfg        *config.KernelConfig
	table      table.Model
	vp         viewport.Model
	eventVP    viewport.Model
	logs       []string
	eventLogs  []string
	snap       safety.Snapshot
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(cfg *config.KernelConfig) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 22},
		{Title: "Value", Width: 14},
		{Title: "Config", Width: 22},
		{Title: "Value", Width: 14},
	}
	rows := []table.Row{
		{"Major Frame (us)", fmt.Sprintf("%d", cfg.MajorFrameUS), "Tick Period (us)", fmt.Sprintf("%d", cfg.TickPeriodUS)},
		{"Jitter Bound (us)", fmt.Sprintf("%d", cfg.JitterBoundUS), "Vote Epsilon", fmt.Sprintf("%g", cfg.VoteEpsilon)},
		{"Partitions", fmt.Sprintf("%d", len(cfg.Partitions)), "Subsystem", fmt.Sprintf("0x%X", cfg.SubsystemCode)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.resize()
		m.refresh()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refresh()
		case "a":
			m.autoscroll = !m.autoscroll
		case "up", "k":
			m.vp.ScrollUp(1)
		case "down", "j":
			m.vp.ScrollDown(1)
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refresh()
	case eventMsg:
		m.eventLogs = append(m.eventLogs, msg.line)
		if len(m.eventLogs) > maxLogLines {
			m.eventLogs = m.eventLogs[len(m.eventLogs)-maxLogLines:]
		}
		m.refresh()
	case snapshotMsg:
		m.snap = msg.snap
	}
	return m, nil
}

func (m *tuiModel) resize() {
	headerHeight := lipgloss.Height(m.renderHeader()) + m.table.Height() + 2
	avail := m.height - headerHeight
	if avail < 4 {
		avail = 4
	}
	eventHeight := avail / 4
	if eventHeight < 2 {
		eventHeight = 2
	}
	m.vp.Height = avail - eventHeight
	m.eventVP.Height = eventHeight
}

func (m *tuiModel) refresh() {
	m.vp.SetContent(m.renderLines(m.logs))
	m.eventVP.SetContent(m.renderLines(m.eventLogs))
	if m.autoscroll {
		m.vp.GotoBottom()
		m.eventVP.GotoBottom()
	}
}

func (m *tuiModel) renderLines(lines []string) string {
	body := strings.Join(lines, "\n")
	if m.wrap && m.vp.Width > 0 {
		body = wordwrap.String(body, m.vp.Width)
	}
	return body
}

func (m tuiModel) renderHeader() string {
	style := unsafeStyle
	switch m.snap.State {
	case "normal":
		style = safeStyle
	case "degraded":
		style = degradedStyle
	}
	return headerStyle.Render(fmt.Sprintf(
		"fcc-kernel  state=%s  violations=%d  fallbacks=%d  monitors=%d",
		style.Render(m.snap.State),
		m.snap.TotalViolations, m.snap.FallbackActivations, m.snap.ActiveMonitors))
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("── cycles ──"))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("── events ──"))
	b.WriteString("\n")
	b.WriteString(m.eventVP.View())
	return b.String()
}
