package stdio

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

func (o StdIO) Printf(msg string, args ...interface{}) {
	fmt.Fprintf(o.Stdout(), msg, args...)
}

func (o StdIO) Println(args ...interface{}) {
	fmt.Fprintln(o.Stdout(), args...)
}

func (o StdIO) Info(args ...interface{}) {
	if o.Quiet {
		return
	}
	fmt.Fprintln(o.Stdout(), args...)
}

func (o StdIO) Infof(msg string, args ...interface{}) {
	if o.Quiet {
		return
	}
	fmt.Fprintf(o.Stdout(), msg+"\n", args...)
}

// Logger returns a structured logger writing to stderr. Debug messages are
// only emitted when Verbose is set, and the current scopes are used as the
// prefix.
func (o StdIO) Logger() *log.Logger {
	level := log.WarnLevel
	if o.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(o.Stderr(), log.Options{
		Level:  level,
		Prefix: fmtScopes(o.scopes),
	})
}

func (o StdIO) Debug(msg string, keyvals ...interface{}) {
	if !o.Verbose {
		return
	}
	o.Logger().Debug(msg, keyvals...)
}

func (o StdIO) Debugf(msg string, args ...interface{}) {
	if !o.Verbose {
		return
	}
	o.Logger().Debugf(msg, args...)
}

func (o StdIO) Warning(msg string, keyvals ...interface{}) {
	o.Logger().Warn(msg, keyvals...)
}

func (o StdIO) Warningf(msg string, args ...interface{}) {
	o.Logger().Warnf(msg, args...)
}

func fmtScopes(scopes []string) string { return strings.Join(scopes, ":") }
