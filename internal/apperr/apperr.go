// Package apperr defines the typed error taxonomy shared by every component.
//
// Handlers that run inside an agent loop reply to a failed request with a
// typed result message. Fatal reports whether an error is StoreUnavailable
// or CorruptState, the two unrecoverable kinds. agentrt.Loop does not act
// on Fatal: it logs every handler error, marks the message read and keeps
// running.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which class of failure an error belongs to.
type Kind string

const (
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindNotFound         Kind = "NotFound"
	KindInvalidInput     Kind = "InvalidInput"
	KindLLMError         Kind = "LLMError"
	KindToolUnavailable  Kind = "ToolUnavailable"
	KindBlocked          Kind = "Blocked"
	KindTimeout          Kind = "Timeout"
	KindCorruptState     Kind = "CorruptState"
)

// Error is a typed application error carrying a Kind for classification.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind, preserving err for errors.Is/As chains.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// ClassifyOf returns the Kind of err, or "" if err is not (or does not wrap) an *Error.
func ClassifyOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return ClassifyOf(err) == kind
}

// Fatal reports whether an error of this kind must abort the owning agent
// loop rather than be converted into a failed result message.
func Fatal(err error) bool {
	k := ClassifyOf(err)
	return k == KindStoreUnavailable || k == KindCorruptState
}
