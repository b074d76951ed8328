package view

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jeffrom/envee/diff"
	"github.com/jeffrom/envee/history"
)

// OutputType is where results are rendered to. It implements pflag.Value.
type OutputType int

const (
	OutputStdout OutputType = iota
	OutputHTML
)

func (t OutputType) String() string {
	if t == OutputHTML {
		return "html"
	}
	return "stdout"
}

func (t *OutputType) Set(v string) error {
	switch strings.ToLower(v) {
	case "stdout":
		*t = OutputStdout
	case "html":
		*t = OutputHTML
	default:
		return errors.Newf("invalid output format %q, must be one of: stdout, html", v)
	}
	return nil
}

func (t *OutputType) Type() string { return "format" }

type HTMLConfig struct {
	// OutputPath is where the report is written.
	OutputPath string
	Title      string

	// Template is the text of a custom report template. The built-in
	// report is used when it's empty.
	Template string
}

type Config struct {
	Type   OutputType
	Stdout StdoutConfig
	HTML   HTMLConfig
}

// RenderOutput renders result, and the commit logs in res if it's not nil,
// in the format cfg selects.
func RenderOutput(result diff.Result, res *history.Results, cfg Config, now time.Time) (string, error) {
	var logs []history.CommitLog
	if res != nil {
		logs = res.Logs
	}

	switch cfg.Type {
	case OutputHTML:
		return RenderHTML(result, logs, cfg.HTML.Template, cfg.HTML.Title, now)
	case OutputStdout:
		out := RenderTable(result, cfg.Stdout)
		if len(logs) > 0 {
			out += "\n\n" + RenderCommitLogs(logs, now, cfg.Stdout.Plain)
		}
		return out, nil
	default:
		return "", errors.Newf("unknown output type %d", cfg.Type)
	}
}
