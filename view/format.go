package view

import (
	"io"
	"strings"
	"text/tabwriter"
)

// newTabWriter returns a tabwriter aligning columns separated by two spaces.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	var flags uint // | tabwriter.Debug
	padding := 2
	return tabwriter.NewWriter(w, 0, 4, padding, ' ', flags)
}

// writeTabRow writes a row of cells. The last cell isn't terminated so the
// row carries no trailing padding.
func writeTabRow(w io.Writer, cols ...string) {
	io.WriteString(w, strings.Join(cols, "\t"))
	io.WriteString(w, "\n")
}
