package attribute

import (
	"errors"
	"fmt"
	"strings"
)

// Definition-time failures.
var (
	ErrDuplicateID       = errors.New("duplicate attribute id")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrInvalidDefinition = errors.New("invalid attribute definition")
)

// Evaluation-time failures.
var (
	ErrCyclicGraph  = errors.New("cycle remains in acyclic ordering")
	ErrMissingSeed  = errors.New("no seed value for cycle member")
	ErrMissingValue = errors.New("input has no value")
	ErrFormula      = errors.New("formula evaluation failed")
	ErrNotAnInput   = errors.New("attribute is not an input")
)

// Error is the structured error returned by the store, graph, evaluator and
// scenario manager. Kind is one of the sentinel errors above, so callers can
// match with errors.Is and still recover the offending attribute with
// errors.As.
type Error struct {
	Kind error
	// ID is the attribute the failure is about, when there is one.
	ID string
	// Ref is a second attribute involved, e.g. the missing dependency.
	Ref string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.ID != "" {
		fmt.Fprintf(&sb, " %q", e.ID)
	}
	if e.Ref != "" {
		fmt.Fprintf(&sb, " (ref %q)", e.Ref)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AttributeID returns the offending attribute id of err, if err wraps an *Error.
func AttributeID(err error) (string, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.ID != "" {
		return ae.ID, true
	}
	return "", false
}
