package view

import (
	"bytes"
	_ "embed"
	"html/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/cockroachdb/errors"

	"github.com/jeffrom/envee/diff"
	"github.com/jeffrom/envee/history"
)

//go:embed assets/report.html
var builtinTemplate string

const htmlDateLayout = "Jan _2, 2006"

// htmlData is what report templates are executed with.
type htmlData struct {
	Title      string
	Timestamp  string
	Columns    []string
	Rows       []htmlRow
	CommitLogs []htmlCommitLog
}

type htmlRow struct {
	Data   []string
	Status string
}

type htmlCommitLog struct {
	App         string
	FromEnv     string
	ToEnv       string
	FromVersion string
	ToVersion   string
	CompareURL  string
	Commits     []htmlCommit
}

type htmlCommit struct {
	ShortSHA string
	HTMLURL  string
	Message  string
	Author   string
	Date     string
}

func reportFuncs() template.FuncMap {
	fns := template.FuncMap{
		"statusColor": statusColor,
	}

	spfns := sprig.HermeticHtmlFuncMap()
	for k, fn := range spfns {
		fns[k] = fn
	}

	return fns
}

// statusColor returns the text colour of a row with status.
func statusColor(status string) string {
	switch status {
	case diff.OutOfSync.String():
		return "#fb4934"
	case diff.InSync.String():
		return "#b8bb26"
	default:
		return "#fbf1c7"
	}
}

func htmlSyncLabel(status diff.SyncStatus) string {
	switch status {
	case diff.InSync:
		return "✓"
	case diff.OutOfSync:
		return "✗"
	default:
		return "-"
	}
}

func buildHTMLData(result diff.Result, logs []history.CommitLog, title string, now time.Time) htmlData {
	data := htmlData{
		Title:     title,
		Timestamp: now.UTC().Format(time.RFC3339),
		Columns:   resultHeader(result),
	}
	for i, row := range resultRows(result, htmlSyncLabel) {
		data.Rows = append(data.Rows, htmlRow{Data: row, Status: result.Apps[i].Status.String()})
	}

	for _, log := range logs {
		hl := htmlCommitLog{
			App:         string(log.App),
			FromEnv:     string(log.FromEnv),
			ToEnv:       string(log.ToEnv),
			FromVersion: string(log.FromVersion),
			ToVersion:   string(log.ToVersion),
		}
		if len(log.Commits) > 0 {
			hl.CompareURL = log.HTMLURL
		}
		for _, c := range log.Commits {
			hl.Commits = append(hl.Commits, htmlCommit{
				ShortSHA: c.ShortSHA(),
				HTMLURL:  c.HTMLURL,
				Message:  c.Subject(),
				Author:   c.AuthorName,
				Date:     c.AuthorDate.UTC().Format(htmlDateLayout),
			})
		}
		data.CommitLogs = append(data.CommitLogs, hl)
	}
	return data
}

// RenderHTML renders an HTML report of result and logs. tmpl is the text of
// an html/template with sprig functions available; the built-in report is
// used when it's empty.
func RenderHTML(result diff.Result, logs []history.CommitLog, tmpl string, title string, now time.Time) (string, error) {
	msg := "couldn't parse HTML template"
	if tmpl == "" {
		tmpl = builtinTemplate
		msg = "couldn't parse built-in HTML template"
	}

	t, err := template.New("report").Funcs(reportFuncs()).Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, msg)
	}

	var b bytes.Buffer
	if err := t.Execute(&b, buildHTMLData(result, logs, title, now)); err != nil {
		return "", errors.Wrap(err, "couldn't render HTML template")
	}
	return b.String(), nil
}
