// Package errors provides the error taxonomy shared by the git backends,
// the fallback orchestrator and the submodule manager.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies an OperationError.
type Kind int

const (
	KindUnknown Kind = iota
	KindBackend
	KindIO
	KindConfig
	KindNotFound
	KindRepository
	KindSparse
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindBackend:     "backend",
	KindIO:          "io",
	KindConfig:      "config",
	KindNotFound:    "not-found",
	KindRepository:  "repository",
	KindSparse:      "sparse-checkout",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors. Backends wrap these so callers can use Is.
var (
	ErrUnsupported         = stderrors.New("operation not supported by this backend")
	ErrSubmoduleNotFound   = stderrors.New("submodule not found")
	ErrRepositoryNotFound  = stderrors.New("repository not found")
	ErrNameCollision       = stderrors.New("submodule name already exists")
	ErrPathConflict        = stderrors.New("target path already exists")
	ErrUncommittedChanges  = stderrors.New("submodule has uncommitted changes")
	ErrNothingToStash      = stderrors.New("no local changes to stash")
	ErrUnsupportedStrategy = stderrors.New("unsupported update strategy")
	ErrInvalidConfig       = stderrors.New("invalid configuration")
)

// OperationError represents an error that occurred during a git or
// submodule operation
type OperationError struct {
	Op        string // The operation being performed
	Backend   string // Backend that produced the error, if any
	Submodule string // Submodule name or path, if any
	Kind      Kind
	Err       error // The underlying error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Backend != "" {
		fmt.Fprintf(&b, " [%s]", e.Backend)
	}
	if e.Submodule != "" {
		fmt.Fprintf(&b, " (%s)", e.Submodule)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for OperationError. Two operation errors
// match when their operations are equal and, if the target sets a kind,
// their kinds are equal too.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	if t.Kind != KindUnknown && t.Kind != e.Kind {
		return false
	}
	return e.Op == t.Op
}

// New creates a new OperationError
func New(op string, err error) *OperationError {
	return &OperationError{
		Op:   op,
		Kind: kindOf(err),
		Err:  err,
	}
}

// Newf creates a new OperationError from a formatted message
func Newf(op string, format string, args ...any) *OperationError {
	return New(op, fmt.Errorf(format, args...))
}

// WithBackend sets the backend name and returns the receiver
func (e *OperationError) WithBackend(name string) *OperationError {
	e.Backend = name
	return e
}

// WithSubmodule sets the submodule and returns the receiver
func (e *OperationError) WithSubmodule(name string) *OperationError {
	e.Submodule = name
	return e
}

// WithKind sets the kind and returns the receiver
func (e *OperationError) WithKind(k Kind) *OperationError {
	e.Kind = k
	return e
}

// Unsupported returns the error a backend reports for an operation it
// cannot perform
func Unsupported(op, backend string) *OperationError {
	return &OperationError{Op: op, Backend: backend, Kind: KindUnsupported, Err: ErrUnsupported}
}

// kindOf infers a kind from the sentinel wrapped by err.
func kindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case stderrors.Is(err, ErrUnsupported), stderrors.Is(err, ErrUnsupportedStrategy):
		return KindUnsupported
	case stderrors.Is(err, ErrSubmoduleNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrRepositoryNotFound):
		return KindRepository
	case stderrors.Is(err, ErrInvalidConfig):
		return KindConfig
	}
	var opErr *OperationError
	if stderrors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsUnsupported reports whether err signals an operation the backend
// cannot perform, as opposed to a failed attempt.
func IsUnsupported(err error) bool {
	if stderrors.Is(err, ErrUnsupported) {
		return true
	}
	var opErr *OperationError
	return stderrors.As(err, &opErr) && opErr.Kind == KindUnsupported
}

// IsNotFound reports whether err means the submodule or repository does
// not exist.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrSubmoduleNotFound) || stderrors.Is(err, ErrRepositoryNotFound)
}

// IsSoft reports whether err may be downgraded to a warning.
func IsSoft(err error) bool {
	return stderrors.Is(err, ErrNothingToStash)
}
