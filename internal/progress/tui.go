package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tilepull/internal/downloads"
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true)
	tuiStatStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	tuiFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	tuiDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
)

type snapshotMsg downloads.Snapshot

type doneMsg struct{}

type tuiModel struct {
	title string
	bar   progress.Model
	snap  downloads.Snapshot
	width int
	done  bool
}

// NewTUI creates a bubbletea program rendering a live progress bar for a run
// of total tiles. Feed it with Notify and end it with Finish.
func NewTUI(title string, total int) *tea.Program {
	m := tuiModel{
		title: title,
		bar:   progress.New(progress.WithDefaultGradient()),
		snap:  downloads.Snapshot{Total: total},
	}
	return tea.NewProgram(m)
}

// Notify pushes a fresh snapshot into the TUI. Safe from any goroutine.
func Notify(p *tea.Program, s downloads.Snapshot) {
	p.Send(snapshotMsg(s))
}

// Finish tells the TUI the run is over; its Run call returns shortly after.
func Finish(p *tea.Program) {
	p.Send(doneMsg{})
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 72 {
			m.bar.Width = 72
		}
		return m, nil

	case tea.KeyMsg:
		// Ctrl+C quits the view; the caller cancels the run when the
		// program exits.
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil

	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd

	case snapshotMsg:
		m.snap = downloads.Snapshot(msg)
		return m, m.bar.SetPercent(m.snap.Percent() / 100)

	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(tuiTitleStyle.Render(m.title))
	b.WriteString("\n\n  ")
	b.WriteString(m.bar.ViewAs(m.snap.Percent() / 100))
	b.WriteString("\n\n  ")

	b.WriteString(tuiStatStyle.Render(fmt.Sprintf("%d/%d tiles", m.snap.Done, m.snap.Total)))
	b.WriteString(tuiDimStyle.Render(fmt.Sprintf("  %d downloaded, %d skipped", m.snap.Downloaded, m.snap.Skipped)))
	if m.snap.Failed > 0 {
		b.WriteString(tuiFailStyle.Render(fmt.Sprintf(", %d failed", m.snap.Failed)))
	}
	b.WriteString(tuiDimStyle.Render("  " + formatBytes(m.snap.Bytes)))
	b.WriteString("\n")

	if !m.done {
		b.WriteString(tuiDimStyle.Render("\n  ctrl+c to stop\n"))
	}
	return b.String()
}
