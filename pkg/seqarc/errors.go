package seqarc

import (
	"errors"
	"fmt"
)

// Error kinds returned by query methods. Test with errors.Is.
var (
	ErrNotOpen  = errors.New("archive is not open")
	ErrNotFound = errors.New("not found")
	ErrRange    = errors.New("invalid range")
	ErrDecode   = errors.New("decode failure")
)

// ErrAlreadyOpen is the cause recorded by Open when the handle is already open.
var ErrAlreadyOpen = errors.New("archive is already open")

// Error describes a failed query. Kind is one of ErrNotOpen, ErrNotFound,
// ErrRange or ErrDecode; Err carries the engine's cause when there is one.
type Error struct {
	Op     string
	Kind   error
	Sample string
	Contig string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	switch {
	case e.Contig != "":
		msg += fmt.Sprintf(" (%s@%s)", e.Contig, e.Sample)
	case e.Sample != "":
		msg += fmt.Sprintf(" (%s)", e.Sample)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
