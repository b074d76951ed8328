package history

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/jeffrom/envee/versions"
)

// FetchError is either an *AppError or a *SystemError.
type FetchError interface {
	error
	fetchError()
}

// AppError is a failure to fetch the commit log of one app.
type AppError struct {
	App versions.App
	Err error
}

func (e *AppError) Error() string { return fmt.Sprintf("%s: %s", e.App, e.Err) }
func (e *AppError) Unwrap() error { return e.Err }
func (*AppError) fetchError()     {}

// SystemError is a failure of the batch itself, not attributable to any one
// app, such as a fetch that could not be admitted or that crashed.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string { return fmt.Sprintf("system: %s", e.Err) }
func (e *SystemError) Unwrap() error { return e.Err }
func (*SystemError) fetchError()     {}

// FetchErrors holds the app and system errors of a batch separately.
type FetchErrors struct {
	apps   []*AppError
	system []*SystemError
}

func (e *FetchErrors) Add(err FetchError) {
	switch v := err.(type) {
	case *AppError:
		e.apps = append(e.apps, v)
	case *SystemError:
		e.system = append(e.system, v)
	}
}

func (e *FetchErrors) AppErrors() []*AppError       { return e.apps }
func (e *FetchErrors) SystemErrors() []*SystemError { return e.system }
func (e *FetchErrors) Len() int                     { return len(e.apps) + len(e.system) }
func (e *FetchErrors) Empty() bool                  { return e.Len() == 0 }

func (e *FetchErrors) sort() {
	sort.SliceStable(e.apps, func(i, j int) bool { return e.apps[i].App < e.apps[j].App })
}

// Err returns all errors as one, listing app errors before system errors, or
// nil if there were none.
func (e *FetchErrors) Err() error {
	if e.Empty() {
		return nil
	}
	merr := &multierror.Error{ErrorFormat: formatFetchErrors}
	for _, err := range e.apps {
		merr = multierror.Append(merr, err)
	}
	for _, err := range e.system {
		merr = multierror.Append(merr, err)
	}
	return merr
}

func formatFetchErrors(errs []error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "couldn't fetch commit logs (%d error(s)):", len(errs))
	for _, err := range errs {
		b.WriteString("\n - ")
		b.WriteString(err.Error())
	}
	return b.String()
}
