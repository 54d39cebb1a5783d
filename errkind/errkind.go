// Package errkind defines the stable, string-comparable error taxonomy
// shared by every layer of gitcore. Every error that crosses a package
// boundary carries a Kind and, where the kind implies structured data, a
// Data payload sufficient to reconstruct the error without re-parsing a
// message string.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is a stable identifier for a class of failure. Kinds are compared
// with ==, never by matching on Error() text.
type Kind string

const (
	NotFound            Kind = "NotFound"
	AlreadyExists       Kind = "AlreadyExists"
	ParseError          Kind = "ParseError"
	InvalidRefName      Kind = "InvalidRefName"
	MissingName         Kind = "MissingName"
	MissingParameter    Kind = "MissingParameter"
	NoCommit            Kind = "NoCommit"
	UnmergedPaths       Kind = "UnmergedPaths"
	FastForward         Kind = "FastForward"
	MergeConflict       Kind = "MergeConflict"
	MergeNotSupported   Kind = "MergeNotSupported"
	ObjectTypeAssertion Kind = "ObjectTypeAssertion"
	InflateError        Kind = "InflateError"
	DeltaError          Kind = "DeltaError"
	HookFailed          Kind = "HookFailed"
	Conflict            Kind = "Conflict"
	Ambiguous           Kind = "Ambiguous"
	InvalidSignature    Kind = "InvalidSignature"
	BareRepository      Kind = "BareRepository"
)

// Error is the concrete error type produced throughout gitcore. Op names
// the operation that failed ("readObject", "writeRef", "commit",...);
// Data carries kind-specific structured detail (see the Data* types in
// this package for the kinds that need one).
type Error struct {
	Kind Kind
	Op   string
	Data any
	// Caller is set by WithCaller at the command-surface boundary; it is
	// the "git.<name>" attribute every public command surfaces.
	Caller string
	Err    error
}

func (e *Error) Error() string {
	if e.Caller != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Caller, e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Caller, e.Op, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &Error{Kind: X}) style matching on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an Error of the given kind for the given operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithData attaches structured data to an otherwise-built error.
func (e *Error) WithData(d any) *Error {
	e.Data = d
	return e
}

// WithCaller tags err (if it is, or wraps, a *Error) with the public
// command name that surfaced it, preserving Kind and Data. Non-*Error
// values are wrapped bare so the caller tag is still observable via
// Error(), matching the "dynamic per-error caller tagging" pattern
// called out as requiring a wrapping type rather than ad-hoc mutation.
func WithCaller(err error, caller string) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		clone := *ge
		clone.Caller = caller
		return &clone
	}
	return &Error{Kind: "", Op: caller, Caller: caller, Err: err}
}

// DataMergeConflict is the Data payload for Kind == MergeConflict.
type DataMergeConflict struct {
	Filepaths      []string
	BothModified   []string
	DeleteByUs     []string
	DeleteByTheirs []string
}

// DataParseError is the Data payload for Kind == ParseError.
type DataParseError struct {
	Expected string
	Actual   string
}

// DataUnmergedPaths is the Data payload for Kind == UnmergedPaths.
type DataUnmergedPaths struct {
	Filepaths []string
}
