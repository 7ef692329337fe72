package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

type writer struct {
	s Sender
}

// NewWriter forwards everything written to it into the view as a ReportMsg.
func NewWriter(s Sender) io.Writer {
	return &writer{s: s}
}

func (w *writer) Write(b []byte) (int, error) {
	w.s.Send(ReportMsg(string(b)))
	return len(b), nil
}
