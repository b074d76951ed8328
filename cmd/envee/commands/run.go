package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeffrom/envee/diff"
	"github.com/jeffrom/envee/history"
	"github.com/jeffrom/envee/stdio"
	"github.com/jeffrom/envee/view"
)

const tokenEnv = "ENVEE_GH_TOKEN"

var timeNow = time.Now

type runOpts struct {
	versionsPath   string
	noCommitLogs   bool
	tableStyle     view.TableStyle
	plain          bool
	validateOnly   bool
	filter         string
	exclude        []string
	output         view.OutputType
	htmlOutput     string
	htmlTitle      string
	htmlTemplate   string
	maxConcurrent  int
	requestTimeout time.Duration
	timeout        time.Duration
	githubAPIURL   string
	debug          bool
	token          string
}

func newRunCmd() *cobra.Command {
	var (
		tableStyle view.TableStyle
		output     view.OutputType
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "show app versions across environments, and the commits between them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd)
			if err != nil {
				return err
			}
			if err := v.BindEnv("github-api-url", envName("github-api-url"), "GITHUB_API_URL"); err != nil {
				return err
			}
			if err := v.BindEnv("gh-token", tokenEnv); err != nil {
				return err
			}

			opts, err := runOptsFrom(v)
			if err != nil {
				return err
			}
			return runVersions(cmd.Context(), v, opts)
		},
	}

	addVersionsFlags(cmd)
	flags := cmd.Flags()
	flags.BoolP("no-commit-logs", "C", false, "don't fetch the commits between the versions of out of sync apps")
	flags.VarP(&tableStyle, "table-style", "s", "table style: ascii, markdown, none, or utf8")
	flags.BoolP("plain", "p", false, "output without colours")
	flags.Bool("validate-only", false, "only validate the versions file")
	flags.VarP(&output, "output-format", "o", "output format: stdout or html")
	flags.String("html-output", "envee-report.html", "path to write the HTML report to")
	flags.String("html-title", "envee", "title of the HTML report")
	flags.String("html-template", "", "path to a custom HTML report template")
	flags.Int("max-concurrent-fetches", history.DefaultMaxConcurrent, "maximum commit log fetches in flight")
	flags.Duration("request-timeout", history.DefaultRequestTimeout, "timeout of each commit log fetch")
	flags.Duration("timeout", 2*time.Minute, "timeout of all commit log fetches")
	flags.String("github-api-url", history.DefaultGitHubAPIURL, "GitHub API base URL")
	flags.Bool("debug", false, "print the resolved options without doing anything")

	return cmd
}

func runOptsFrom(v *viper.Viper) (runOpts, error) {
	opts := runOpts{
		versionsPath:   v.GetString("versions"),
		noCommitLogs:   v.GetBool("no-commit-logs"),
		plain:          v.GetBool("plain"),
		validateOnly:   v.GetBool("validate-only"),
		filter:         v.GetString("filter"),
		exclude:        v.GetStringSlice("exclude"),
		htmlOutput:     v.GetString("html-output"),
		htmlTitle:      v.GetString("html-title"),
		htmlTemplate:   v.GetString("html-template"),
		maxConcurrent:  v.GetInt("max-concurrent-fetches"),
		requestTimeout: v.GetDuration("request-timeout"),
		timeout:        v.GetDuration("timeout"),
		githubAPIURL:   v.GetString("github-api-url"),
		debug:          v.GetBool("debug"),
		token:          v.GetString("gh-token"),
	}
	if err := opts.tableStyle.Set(v.GetString("table-style")); err != nil {
		return opts, err
	}
	if err := opts.output.Set(v.GetString("output-format")); err != nil {
		return opts, err
	}
	if opts.maxConcurrent < 1 {
		return opts, errors.Newf("max-concurrent-fetches must be at least 1, got %d", opts.maxConcurrent)
	}
	return opts, nil
}

func (opts runOpts) fetchCommitLogs() bool {
	return !opts.noCommitLogs && !opts.validateOnly
}

func runVersions(ctx context.Context, v *viper.Viper, opts runOpts) error {
	o := stdio.FromContext(ctx)

	if opts.debug {
		o.Printf("DEBUG INFO\n\n%s", opts.debugInfo())
		return nil
	}

	if opts.fetchCommitLogs() && opts.token == "" {
		return errors.Newf("%s needs to be set to fetch commit logs from GitHub", tokenEnv)
	}

	vs, err := loadVersions(ctx, v)
	if err != nil {
		return err
	}

	if opts.validateOnly {
		o.Println(validMessage)
		return nil
	}

	result := diff.Compute(vs.Envs, vs.Versions)
	o.Debug("computed sync status", "apps", len(result.Apps), "out_of_sync", len(result.OutOfSync()))

	var res *history.Results
	if opts.fetchCommitLogs() {
		fetchCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()

		res, err = history.FetchCommitLogs(fetchCtx, result, vs, opts.token,
			history.Opts{MaxConcurrent: opts.maxConcurrent, RequestTimeout: opts.requestTimeout},
			history.GitHubOpts{BaseURL: opts.githubAPIURL})
		if err != nil {
			return err
		}
	}

	cfg := view.Config{
		Type: opts.output,
		Stdout: view.StdoutConfig{
			TableStyle: opts.tableStyle,
			Plain:      opts.plain || !o.IsTerminal(),
		},
		HTML: view.HTMLConfig{
			OutputPath: opts.htmlOutput,
			Title:      opts.htmlTitle,
		},
	}
	if opts.output == view.OutputHTML && opts.htmlTemplate != "" {
		b, err := os.ReadFile(opts.htmlTemplate)
		if err != nil {
			return errors.Wrapf(err, "couldn't read HTML template %q", opts.htmlTemplate)
		}
		cfg.HTML.Template = string(b)
	}

	out, err := view.RenderOutput(result, res, cfg, timeNow())
	if err != nil {
		return err
	}

	switch opts.output {
	case view.OutputHTML:
		if err := os.WriteFile(opts.htmlOutput, []byte(out), 0644); err != nil {
			return errors.Wrapf(err, "couldn't write HTML report to %q", opts.htmlOutput)
		}
		o.Infof("wrote HTML report to %s", opts.htmlOutput)
	default:
		o.Println(out)
	}

	if res == nil {
		return nil
	}
	return res.Errors.Err()
}

func orNotProvided(s string) string {
	if s == "" {
		return "<NOT PROVIDED>"
	}
	return s
}

func (opts runOpts) debugInfo() string {
	var b strings.Builder
	row := func(label string, value interface{}) {
		fmt.Fprintf(&b, "%-38s%v\n", label+":", value)
	}

	row("command", "run")
	row("versions file", opts.versionsPath)
	row("don't show commit logs", opts.noCommitLogs)
	row("table style", opts.tableStyle)
	row("plain output", opts.plain)
	row("only validate versions file", opts.validateOnly)
	row("app filter", orNotProvided(opts.filter))
	row("excluded apps", orNotProvided(strings.Join(opts.exclude, ", ")))
	row("output format", opts.output)
	if opts.output == view.OutputHTML {
		row("html output", opts.htmlOutput)
		row("html title", opts.htmlTitle)
		row("html template", orNotProvided(opts.htmlTemplate))
	}
	row("max concurrent fetches", opts.maxConcurrent)
	row("request timeout", opts.requestTimeout)
	row("timeout", opts.timeout)
	row("github api url", opts.githubAPIURL)
	return b.String()
}
