package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"gatebench/internal/runner"
	"gatebench/internal/storage"
	"gatebench/internal/tui/styles"
)

// RenderHistory prints stored series as a table, newest first.
func RenderHistory(w io.Writer, items []storage.HistoryItem, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No benchmark history yet.")
		return err
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		id := it.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			humanize.RelTime(it.Timestamp, now, "ago", "from now"),
			it.Label,
			it.Mode,
			strconv.Itoa(it.Workers),
			strconv.Itoa(it.Summary.Runs),
			humanize.IBytes(uint64(it.Summary.MovedMiB * runner.MiB)),
			fmt.Sprintf("%.2f", it.Summary.Mbps),
			fmt.Sprintf("%.2f%%", it.Summary.SuccessPct),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		Headers("ID", "WHEN", "LABEL", "MODE", "THREADS", "RUNS", "MOVED", "MBPS", "SUCCESS").
		Rows(rows...)

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
