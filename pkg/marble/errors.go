package marble

import (
	"errors"
	"fmt"
	"strings"
)

// ParseErrorKind categorizes malformed sequences.
type ParseErrorKind string

const (
	// ErrNullSequence indicates no sequence was supplied at all.
	ErrNullSequence ParseErrorKind = "NULL_SEQUENCE"

	// ErrUnbalancedGroup indicates a group closer without opener, a missing
	// closer, or a closer of the other group type.
	ErrUnbalancedGroup ParseErrorKind = "UNBALANCED_GROUP"

	// ErrNestedGroup indicates a group opened inside another group.
	ErrNestedGroup ParseErrorKind = "NESTED_GROUP"

	// ErrDashInGroup indicates a time separator inside a group.
	ErrDashInGroup ParseErrorKind = "DASH_IN_GROUP"

	// ErrGroupTooSmall indicates a group with fewer than two marbles.
	ErrGroupTooSmall ParseErrorKind = "GROUP_TOO_SMALL"

	// ErrDuplicateOriginMarker indicates more than one '^'.
	ErrDuplicateOriginMarker ParseErrorKind = "DUPLICATE_ORIGIN_MARKER"

	// ErrUnexpectedComma indicates a ',' outside a group (multi-char grammar).
	ErrUnexpectedComma ParseErrorKind = "UNEXPECTED_COMMA"
)

// ParseError is returned for malformed sequences.
type ParseError struct {
	Kind     ParseErrorKind
	Sequence string
	// Pos is the rune index of the offending character, -1 when unknown.
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s", e.Kind, e.Message)
	if e.Pos >= 0 {
		fmt.Fprintf(&buf, " at position %d%s", e.Pos, Pointer(e.Sequence, e.Pos))
	}
	return buf.String()
}

// IsParseError reports whether err is a ParseError of the given kind.
// An empty kind matches any ParseError.
func IsParseError(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return kind == "" || pe.Kind == kind
	}
	return false
}

func newParseError(kind ParseErrorKind, seq []rune, pos int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:     kind,
		Sequence: string(seq),
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	}
}
