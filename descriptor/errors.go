package descriptor

import (
	"errors"
	"fmt"
)

// ErrKind classifies a ParseError.
type ErrKind int

const (
	// KindMalformedLine means a non-blank line failed the keyword-line grammar.
	KindMalformedLine ErrKind = iota
	// KindUnterminatedBlock means a pseudo-PGP block was opened but never closed.
	KindUnterminatedBlock
	// KindNonASCIIField means a field that must be printable ASCII was not.
	KindNonASCIIField
	// KindMissingField means a field mandatory for the document's role is absent.
	KindMissingField
	// KindDisallowedField means a field exclusive to the other document role is present.
	KindDisallowedField
	// KindMisorderedField means known fields appear out of the format's canonical order.
	KindMisorderedField
	// KindDuplicateField means a field that may appear at most once appears again.
	KindDuplicateField
	// KindOutOfRangeParameter means a params value violates its numeric range.
	KindOutOfRangeParameter
	// KindUnsortedParameterKeys means params keys are not in ascending order.
	KindUnsortedParameterKeys
	// KindMalformedTimestamp means a timestamp field is not YYYY-MM-DD HH:MM:SS.
	KindMalformedTimestamp
	// KindMalformedVersion means a version string could not be parsed.
	KindMalformedVersion
	// KindMalformedInteger means an integer field could not be parsed.
	KindMalformedInteger
)

var kindNames = map[ErrKind]string{
	KindMalformedLine:         "malformed line",
	KindUnterminatedBlock:     "unterminated block",
	KindNonASCIIField:         "non-ascii field",
	KindMissingField:          "missing mandatory field",
	KindDisallowedField:       "disallowed field",
	KindMisorderedField:       "misordered field",
	KindDuplicateField:        "duplicate field",
	KindOutOfRangeParameter:   "out of range parameter",
	KindUnsortedParameterKeys: "unsorted parameter keys",
	KindMalformedTimestamp:    "malformed timestamp",
	KindMalformedVersion:      "malformed version",
	KindMalformedInteger:      "malformed integer",
}

func (k ErrKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// ParseError is the error type for all descriptor and document parsing
// failures. Line holds the offending raw line when one is known.
type ParseError struct {
	Kind    ErrKind
	Message string
	Line    string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("%s: %s (line: %q)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NewError builds a ParseError with a formatted message.
func NewError(kind ErrKind, line, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line}
}

// IsKind reports whether err is (or wraps) a ParseError of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
