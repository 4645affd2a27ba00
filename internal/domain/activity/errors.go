package activity

import (
	"errors"
	"fmt"
)

// Kind classifies the user-facing domain errors. All of them signal invalid
// input or a violated invariant, never a transient failure; nothing here is
// retryable.
type Kind int

const (
	// KindUnknown is any error that carries no domain classification.
	KindUnknown Kind = iota
	// KindMissingField marks a required field absent at the point it is
	// needed (destination location on complete, patient on submit).
	KindMissingField
	// KindInvariant marks a violated domain invariant (double admission,
	// bed not available, swap across wards).
	KindInvariant
	// KindNotFound marks a record required by a must-exist check that does
	// not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing_required_field"
	case KindInvariant:
		return "invariant_violation"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// MissingFieldf builds a missing-required-field error.
func MissingFieldf(format string, args ...interface{}) error {
	return &Error{Kind: KindMissingField, Msg: fmt.Sprintf(format, args...)}
}

// Invariantf builds an invariant-violation error.
func Invariantf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvariant, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the domain error kind; KindUnknown for anything
// unclassified.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
