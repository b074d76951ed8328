package view

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeffrom/envee/history"
)

var (
	logHeadingStyle = lipgloss.NewStyle().Bold(true)
	logColumnStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		lipgloss.NewStyle(),
		lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func logHeading(log history.CommitLog) string {
	return fmt.Sprintf("%s %s..%s (%s..%s)", log.App, log.FromEnv, log.ToEnv, log.FromVersion, log.ToVersion)
}

func commitRows(log history.CommitLog, now time.Time) [][]string {
	rows := make([][]string, 0, len(log.Commits))
	for _, c := range log.Commits {
		rows = append(rows, []string{c.ShortSHA(), c.Subject(), c.AuthorName, humanizeAge(c.AuthorDate, now)})
	}
	return rows
}

// RenderCommitLogs renders each log as a heading followed by one line per
// commit. Logs are separated by a blank line and the output has no trailing
// newline.
func RenderCommitLogs(logs []history.CommitLog, now time.Time, plain bool) string {
	parts := make([]string, 0, len(logs))
	for _, log := range logs {
		var b strings.Builder
		heading := logHeading(log)
		if !plain {
			heading = logHeadingStyle.Render(heading)
		}
		b.WriteString(heading)
		b.WriteString("\n")

		rows := commitRows(log, now)
		if len(rows) > 0 {
			b.WriteString("\n")
			if plain {
				b.WriteString(plainCommitRows(rows))
			} else {
				b.WriteString(styledCommitRows(rows))
			}
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func plainCommitRows(rows [][]string) string {
	var b bytes.Buffer
	tw := newTabWriter(&b)
	for _, row := range rows {
		cols := append([]string{" " + row[0]}, row[1:]...)
		writeTabRow(tw, cols...)
	}
	tw.Flush()
	return b.String()
}

func styledCommitRows(rows [][]string) string {
	t := table.New().
		Rows(rows...).
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().PaddingRight(2)
			if col == 0 {
				style = style.PaddingLeft(1)
			}
			if col < len(logColumnStyles) {
				return style.Inherit(logColumnStyles[col])
			}
			return style
		})
	return t.String()
}
