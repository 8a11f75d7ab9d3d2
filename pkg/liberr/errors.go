// Package liberr defines the library's tagged error taxonomy.
//
// Errors are surfaced as a Kind plus a human message and an optional cause,
// wrapped so that callers can both errors.Is against a sentinel and read a
// readable message.
package liberr

import (
	"errors"
	"fmt"
)

// Kind enumerates the exposed error codes.
type Kind string

const (
	NotInitialized  Kind = "NOT_INITIALIZED"
	EmptyText       Kind = "EMPTY_TEXT"
	DimensionMismatch Kind = "DIMENSION_MISMATCH"
	EmbeddingFailed Kind = "EMBEDDING_FAILED"
	NoTextGenerator Kind = "NO_TEXT_GENERATOR"
	SummarizeTooFew Kind = "SUMMARIZE_TOO_FEW"
	EntryNotFound   Kind = "ENTRY_NOT_FOUND"
	LearningDisabled Kind = "LEARNING_DISABLED"
)

// LibraryError wraps an error with its taxonomy Kind and the operation it occurred in.
type LibraryError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *LibraryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("library: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("library: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *LibraryError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, liberr.New(kind, "", nil)) style sentinel checks
// by comparing Kind rather than requiring identical error values.
func (e *LibraryError) Is(target error) bool {
	var other *LibraryError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs a LibraryError for the given Kind, operation and cause.
func New(kind Kind, op string, cause error) error {
	return &LibraryError{Kind: kind, Op: op, Err: cause}
}

// Sentinel returns a bare LibraryError of the given Kind for use with errors.Is.
func Sentinel(kind Kind) error {
	return &LibraryError{Kind: kind}
}

// KindOf extracts the Kind from err, if it is (or wraps) a *LibraryError.
func KindOf(err error) (Kind, bool) {
	var le *LibraryError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}
