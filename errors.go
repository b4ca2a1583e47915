package ledger

import "fmt"

// ErrorKind discriminates the pipeline stage an error originates from.
type ErrorKind string

const (
	ParserError         ErrorKind = "ParserError"
	BookingError        ErrorKind = "BookingError"
	CategorizationError ErrorKind = "CategorizationError"
	ReductionError      ErrorKind = "ReductionError"
	InterpolationError  ErrorKind = "InterpolationError"
	BalanceError        ErrorKind = "BalanceError"
	PadError            ErrorKind = "PadError"
	ValidationError     ErrorKind = "ValidationError"
	LoadError           ErrorKind = "LoadError"
)

// Source locates an error in the input files.
type Source struct {
	Filename string
	Line     int
}

func (s Source) String() string {
	if s.Filename == "" {
		return "<input>"
	}
	return fmt.Sprintf("%s:%d", s.Filename, s.Line)
}

// Error is a structured, user-visible failure condition. Errors are data:
// every pipeline stage accumulates them and keeps going, so that as many
// problems as possible surface in one run.
type Error struct {
	Kind    ErrorKind
	Source  Source
	Message string
	Entry   Directive // the offending directive, when one exists
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Message)
}

// newError builds an Error located at the given directive.
func newError(kind ErrorKind, entry Directive, format string, args ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Entry: entry}
	if entry != nil {
		m := entry.Meta()
		e.Source = Source{Filename: m.Filename, Line: m.Line}
	}
	return e
}

// newErrorAt builds an Error at an explicit source location.
func newErrorAt(kind ErrorKind, src Source, format string, args ...any) *Error {
	return &Error{Kind: kind, Source: src, Message: fmt.Sprintf(format, args...)}
}
