package topopt

import (
	"errors"
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// Kind enumerates the error kinds of spec.md §7.
type Kind int

const (
	// InvalidConfig reports bad dimensions/parameters at construction.
	InvalidConfig Kind = iota
	// InvalidInput reports malformed forces/fixed-dof data at construction.
	InvalidInput
	// Nonfinite reports a CG result that went NaN/Inf -- fatal for the
	// current run; the caller must Reset or reconstruct.
	Nonfinite
	// NotConverged names CG reaching its iteration cap -- a warning,
	// not fatal. Step does not return it as an error: the step completes
	// with the best available iterate and, when Config.Verbose is set,
	// logs the warning.
	NotConverged
)

func (k Kind) String() string {
	switch k {
	case InvalidConfig:
		return "InvalidConfig"
	case InvalidInput:
		return "InvalidInput"
	case Nonfinite:
		return "Nonfinite"
	case NotConverged:
		return "NotConverged"
	default:
		return "Unknown"
	}
}

// Error is the typed error returned by the core API, wrapping a
// chk.Err-built message with its Kind so callers can errors.As/Is on it
// without parsing message text.
type Error struct {
	Kind Kind
	err  error
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, err: chk.Err(format, args...)}
}

// newErrPlain wraps a literal message with chk.Err, for the rare case
// where the message has no format arguments.
func newErrPlain(msg string) error {
	return chk.Err("%s", msg)
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
