// Package stdio manages standard io in a way that's easily mockable in tests
// while also not depending on overriding os.Stdin, os.Stdout, and os.Stderr.
package stdio

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type contextKey string

var stdioKey = contextKey("stdio")

type StdIO struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Quiet   bool
	Verbose bool
	scopes  []string
}

func (o StdIO) Stdin() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

func (o StdIO) Stdout() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o StdIO) Stderr() io.Writer {
	if o.Err != nil {
		return o.Err
	}
	return os.Stderr
}

// IsTerminal reports whether stdout is an interactive terminal. Anything other
// than an *os.File, such as a test buffer, is not.
func (o StdIO) IsTerminal() bool {
	f, ok := o.Stdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (o StdIO) WithScope(scopes ...string) StdIO {
	o.scopes = scopes
	return o
}

func (o StdIO) AppendScope(scopes ...string) StdIO {
	o.scopes = append(append([]string(nil), o.scopes...), scopes...)
	return o
}

func (o StdIO) ClearScope() StdIO {
	o.scopes = nil
	return o
}

func SetContext(ctx context.Context, o *StdIO) context.Context {
	return context.WithValue(ctx, stdioKey, o)
}

// FromContext returns the StdIO set on ctx, or a default one writing to the
// process's standard streams.
func FromContext(ctx context.Context) *StdIO {
	if ctx == nil {
		panic("stdio: context was nil")
	}
	if o, ok := ctx.Value(stdioKey).(*StdIO); ok && o != nil {
		return o
	}
	return &StdIO{}
}

func Stdin(ctx context.Context) io.Reader  { return FromContext(ctx).Stdin() }
func Stdout(ctx context.Context) io.Writer { return FromContext(ctx).Stdout() }
func Stderr(ctx context.Context) io.Writer { return FromContext(ctx).Stderr() }
