package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gatebench/internal/runner"
	"gatebench/internal/tui/components"
	"gatebench/internal/tui/styles"
)

const reportLines = 14

type progressMsg runner.Progress

// ReportMsg carries report text written while the view is open.
type ReportMsg string

// DoneMsg ends the view once the series has finished.
type DoneMsg struct {
	Err error
}

// Model is the live view of a benchmark series.
type Model struct {
	runs    int
	workers int
	label   string

	updates runner.ProgressChan
	cancel  context.CancelFunc

	current   runner.Progress
	finished  int
	succeeded int
	attempted int

	spinner  spinner.Model
	bar      progress.Model
	runTimes components.Sparkline
	lines    []string

	width int
	done  bool
	err   error
}

func NewModel(runs, workers int, label string, updates runner.ProgressChan, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Active

	return Model{
		runs:     runs,
		workers:  workers,
		label:    label,
		updates:  updates,
		cancel:   cancel,
		current:  runner.Progress{Run: 1, Workers: workers},
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient()),
		runTimes: components.NewSparkline(40, "Run time", "s", styles.Value),
		width:    80,
	}
}

func waitForProgress(ch runner.ProgressChan) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.updates))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(min(msg.Width-10, 60), 10)

	case progressMsg:
		p := runner.Progress(msg)
		m.current = p
		if p.Phase == runner.PhaseDone {
			m.finished++
			m.attempted += p.Completed
			m.succeeded += p.Succeeded
			m.runTimes.Add(p.Elapsed.Seconds())
		}
		return m, waitForProgress(m.updates)

	case ReportMsg:
		m.lines = append(m.lines, strings.Split(strings.TrimRight(string(msg), "\n"), "\n")...)
		if len(m.lines) > reportLines {
			m.lines = m.lines[len(m.lines)-reportLines:]
		}

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

// Fraction of the current run's uploads that have returned.
func (m Model) fraction() float64 {
	if m.current.Phase != runner.PhaseUploading && m.current.Phase != runner.PhaseDone {
		return 0
	}
	if m.workers <= 0 {
		return 0
	}
	return float64(m.current.Completed) / float64(m.workers)
}

func (m Model) View() string {
	if m.done {
		if m.err != nil {
			return styles.Error.Render(fmt.Sprintf("✖ Benchmark stopped: %v", m.err)) + "\n"
		}
		return styles.Success.Render(fmt.Sprintf("✔ %d of %d runs finished", m.finished, m.runs)) + "\n"
	}

	title := styles.Title.Render(fmt.Sprintf("GATEBENCH · %s", m.label))

	status := fmt.Sprintf("%s Run %d/%d  %s",
		m.spinner.View(),
		m.current.Run, m.runs,
		styles.Active.Render(m.current.Phase.String()))

	uploads := fmt.Sprintf("%s  %s",
		m.bar.ViewAs(m.fraction()),
		styles.Subtle.Render(fmt.Sprintf("%d/%d", m.current.Completed, m.workers)))

	failed := m.attempted - m.succeeded
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Text.Render("OK: "), styles.Success.Render(fmt.Sprint(m.succeeded)),
		styles.Text.Render("   Failed: "), failStyle(failed).Render(fmt.Sprint(failed)),
	)

	sections := []string{title, "", status, uploads, counts, "", m.runTimes.View()}
	if len(m.lines) > 0 {
		sections = append(sections, "", styles.Box.Render(strings.Join(m.lines, "\n")))
	}
	sections = append(sections, "", styles.RenderKey("q", "stop"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func failStyle(n int) lipgloss.Style {
	if n > 0 {
		return styles.Error
	}
	return styles.Subtle
}
