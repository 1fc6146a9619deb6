// Package merr defines the error taxonomy every fallible operation in the
// engine returns through: a fixed set of kinds, a cause chain, and a
// context record (path/operation/key) that callers use to decide whether
// to contain, log, or abort. Grounded on CineVault's wrapped-error idiom
// (fmt.Errorf("%s: %w", op, err)) generalized into a structured type so
// callers can branch on Kind via errors.As instead of string matching.
package merr

import "fmt"

// Kind classifies a failure for branching and reporting purposes. These
// are the only kinds the core ever produces; callers should treat any
// other value defensively but the core never emits one.
type Kind int

const (
	Unknown Kind = iota
	FileSystem
	ExternalTool
	Database
	Hashing
	Configuration
	Validation
)

func (k Kind) String() string {
	switch k {
	case FileSystem:
		return "filesystem"
	case ExternalTool:
		return "external_tool"
	case Database:
		return "database"
	case Hashing:
		return "hashing"
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the tagged error type returned by every fallible core
// operation. Op names the failing operation (e.g. "store.upsert"); Path
// and Key are populated when the failure is attributable to a specific
// file or cache key.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Key  string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op
	if s != "" {
		s += ": "
	}
	if e.Path != "" {
		s += fmt.Sprintf("path=%s ", e.Path)
	}
	if e.Key != "" {
		s += fmt.Sprintf("key=%s ", e.Key)
	}
	s += e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an *Error with an underlying cause. If err is already
// an *Error and only a path or key needs adding, WithPath or WithKey on
// the existing value avoids re-wrapping.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: err.Error(), Err: err}
}

// WithPath returns a copy of e annotated with a file path.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// WithKey returns a copy of e annotated with a cache/store key.
func (e *Error) WithKey(key string) *Error {
	c := *e
	c.Key = key
	return &c
}

// Is reports whether err is a *merr.Error of the given kind, unwrapping
// as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if me, ok := err.(*Error); ok {
			return me.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
