// Package view renders sync results and commit logs for terminals and as
// HTML reports.
package view

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"

	"github.com/jeffrom/envee/diff"
)

// TableStyle is the border style of the results table. It implements
// pflag.Value.
type TableStyle string

const (
	TableStyleASCII    TableStyle = "ascii"
	TableStyleMarkdown TableStyle = "markdown"
	TableStyleNone     TableStyle = "none"
	TableStyleUTF8     TableStyle = "utf8"
)

var tableStyles = []TableStyle{TableStyleASCII, TableStyleMarkdown, TableStyleNone, TableStyleUTF8}

func (s TableStyle) String() string {
	if s == "" {
		return string(TableStyleUTF8)
	}
	return string(s)
}

func (s *TableStyle) Set(v string) error {
	for _, style := range tableStyles {
		if string(style) == strings.ToLower(v) {
			*s = style
			return nil
		}
	}
	return errors.Newf("invalid table style %q, must be one of: ascii, markdown, none, utf8", v)
}

func (s *TableStyle) Type() string { return "style" }

// StdoutConfig controls terminal output.
type StdoutConfig struct {
	TableStyle TableStyle

	// Plain disables colours.
	Plain bool
}

var (
	outOfSyncStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	inSyncStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	headerStyle    = lipgloss.NewStyle().Bold(true)
	borderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func syncLabel(status diff.SyncStatus) string {
	switch status {
	case diff.InSync:
		return "YES"
	case diff.OutOfSync:
		return "NO"
	default:
		return "-"
	}
}

func resultHeader(result diff.Result) []string {
	cols := make([]string, 0, len(result.Envs)+2)
	cols = append(cols, "app")
	for _, env := range result.Envs {
		cols = append(cols, string(env))
	}
	return append(cols, "in-sync")
}

func resultRows(result diff.Result, label func(diff.SyncStatus) string) [][]string {
	rows := make([][]string, 0, len(result.Apps))
	for _, app := range result.Apps {
		row := make([]string, 0, len(result.Envs)+2)
		row = append(row, string(app.App))
		for _, env := range result.Envs {
			row = append(row, string(app.Values[env]))
		}
		rows = append(rows, append(row, label(app.Status)))
	}
	return rows
}

// RenderTable renders result as a table with one row per app and one column
// per env. The output has no trailing newline.
func RenderTable(result diff.Result, cfg StdoutConfig) string {
	header := resultHeader(result)
	rows := resultRows(result, syncLabel)

	if cfg.TableStyle == TableStyleNone {
		var b bytes.Buffer
		tw := newTabWriter(&b)
		writeTabRow(tw, header...)
		for _, row := range rows {
			writeTabRow(tw, row...)
		}
		tw.Flush()
		return strings.TrimRight(b.String(), "\n")
	}

	t := table.New().
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if cfg.Plain {
				return style
			}
			if row == table.HeaderRow {
				return style.Inherit(headerStyle)
			}
			if row < 0 || row >= len(result.Apps) {
				return style
			}
			switch result.Apps[row].Status {
			case diff.OutOfSync:
				return style.Inherit(outOfSyncStyle)
			case diff.InSync:
				return style.Inherit(inSyncStyle)
			}
			return style
		})
	if !cfg.Plain {
		t = t.BorderStyle(borderStyle)
	}

	switch cfg.TableStyle {
	case TableStyleASCII:
		t = t.Border(lipgloss.ASCIIBorder())
	case TableStyleMarkdown:
		t = t.Border(lipgloss.MarkdownBorder()).BorderTop(false).BorderBottom(false)
	default:
		t = t.Border(lipgloss.NormalBorder())
	}
	return t.String()
}
