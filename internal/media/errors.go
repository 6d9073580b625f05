package media

import (
	"errors"
	"fmt"
)

var (
	ErrUnreadableTags = errors.New("unreadable tags")
	ErrTagWriteFailed = errors.New("tag write failed")

	ErrToolFailure      = errors.New("external tool failed")
	ErrTranscodeTimeout = errors.New("external tool timed out")
	ErrNotImplemented   = errors.New("not implemented")
)

type TagErrorKind int

const (
	TagUnreadable TagErrorKind = iota
	TagWriteFailed
)

type TagError struct {
	Kind TagErrorKind
	Path string
	Err  error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.sentinel(), e.Path, e.Err)
}

func (e *TagError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *TagError) sentinel() error {
	if e.Kind == TagWriteFailed {
		return ErrTagWriteFailed
	}
	return ErrUnreadableTags
}

type TranscodeErrorKind int

const (
	ToolFailure TranscodeErrorKind = iota
	Timeout
	NotImplemented
)

// TranscodeError carries the failing operation and the tool's diagnostic
// output (stderr, trimmed).
type TranscodeError struct {
	Kind       TranscodeErrorKind
	Op         string
	Diagnostic string
	Err        error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.sentinel())
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TranscodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *TranscodeError) sentinel() error {
	switch e.Kind {
	case Timeout:
		return ErrTranscodeTimeout
	case NotImplemented:
		return ErrNotImplemented
	default:
		return ErrToolFailure
	}
}
