package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/match"
)

// FailureKind categorizes why a tick failed.
type FailureKind string

const (
	// FailureMissingEvent indicates fewer events arrived than a moment required.
	FailureMissingEvent FailureKind = "missing_event"

	// FailureUnexpectedEvents indicates events arrived that no marble explains.
	FailureUnexpectedEvents FailureKind = "unexpected_events"

	// FailureAssertion indicates a check rejected the received events.
	FailureAssertion FailureKind = "assertion"

	// FailureAction indicates an input action returned an error.
	FailureAction FailureKind = "action"
)

// MissingEventError is returned when a moment received fewer events than it
// has marbles.
type MissingEventError struct {
	Moment   marble.Moment
	Expected int
	Received []any
}

// Error implements the error interface.
func (e *MissingEventError) Error() string {
	if !e.Moment.IsGroup() {
		return fmt.Sprintf("expecting '%s' at time %d, but there was no event", e.Moment, e.Moment.Time)
	}
	return fmt.Sprintf("expecting %s '%s' with %d elements but got %d events: %s",
		groupName(e.Moment), e.Moment, e.Expected, len(e.Received), listEvents(e.Received))
}

// UnexpectedEventsError is returned when events arrived that the moment did
// not allow. Events lists everything that was drained.
type UnexpectedEventsError struct {
	Time   int
	Events []any
}

// Error implements the error interface.
func (e *UnexpectedEventsError) Error() string {
	return fmt.Sprintf("expecting no event at time %d but received %d: %s",
		e.Time, len(e.Events), listEvents(e.Events))
}

// AssertionError is returned when a check rejected what was received.
//
// Exactly one of Err, Pairs or Table carries the detail: Err for a single
// marble, Pairs for the failing pairs of an ordered group and Table for
// table-matched groups.
type AssertionError struct {
	Moment marble.Moment
	Err    error
	Pairs  []match.Cell
	Table  *match.Table
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	switch {
	case e.Table != nil:
		return fmt.Sprintf("%s '%s' was not matched by the received events:\n%s",
			groupName(e.Moment), e.Moment, e.Table)
	case len(e.Pairs) > 0:
		var buf strings.Builder
		fmt.Fprintf(&buf, "expecting %s '%s' with %d elements but %d events failed their check:",
			groupName(e.Moment), e.Moment, len(e.Moment.Marbles), len(e.Pairs))
		for _, p := range e.Pairs {
			fmt.Fprintf(&buf, "\n- marble '%s', event '%v': %v", p.Marble, p.Event, p.Err)
		}
		return buf.String()
	case e.Err != nil:
		return fmt.Sprintf("marble '%s': %v", e.Moment, e.Err)
	default:
		return fmt.Sprintf("marble '%s' was not matched", e.Moment)
	}
}

// Unwrap exposes the check errors.
func (e *AssertionError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err}
	}
	errs := make([]error, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		errs = append(errs, p.Err)
	}
	return errs
}

// ActionError is returned when an input action failed.
type ActionError struct {
	Sequence string
	Time     int
	Pos      int
	Marble   string
	Err      error
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("error when firing marble '%s' at time %d on sequence%s\n%v",
		e.Marble, e.Time, marble.Pointer(e.Sequence, e.Pos), e.Err)
}

// Unwrap returns the action's error.
func (e *ActionError) Unwrap() error { return e.Err }

// VerificationError places a failed check in its sequence.
type VerificationError struct {
	Sequence string
	Time     int
	Pos      int
	// Marble renders the moment that was checked.
	Marble string
	// NothingElse is set when the failing check was the "nothing else
	// should arrive" check of the tick.
	NothingElse bool
	Err         error
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	var head string
	switch {
	case e.NothingElse || KindOf(e.Err) == FailureUnexpectedEvents:
		head = "unexpected events were received"
	case KindOf(e.Err) == FailureMissingEvent:
		head = fmt.Sprintf("marble '%s' not all expected events were received", e.Marble)
	default:
		head = fmt.Sprintf("marble '%s' its assertion was not satisfied", e.Marble)
	}
	return fmt.Sprintf("%s at time %d on sequence%s\n%v",
		head, e.Time, marble.Pointer(e.Sequence, e.Pos), e.Err)
}

// Unwrap returns the failed check's error.
func (e *VerificationError) Unwrap() error { return e.Err }

// IsMissingEvent reports whether err is or wraps a MissingEventError.
func IsMissingEvent(err error) bool {
	var target *MissingEventError
	return errors.As(err, &target)
}

// IsUnexpectedEvents reports whether err is or wraps an UnexpectedEventsError.
func IsUnexpectedEvents(err error) bool {
	var target *UnexpectedEventsError
	return errors.As(err, &target)
}

// IsAssertionFailure reports whether err is or wraps an AssertionError.
func IsAssertionFailure(err error) bool {
	var target *AssertionError
	return errors.As(err, &target)
}

// IsActionError reports whether err is or wraps an ActionError.
func IsActionError(err error) bool {
	var target *ActionError
	return errors.As(err, &target)
}

// KindOf classifies err. It returns "" for errors outside the taxonomy.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case IsActionError(err):
		return FailureAction
	case IsMissingEvent(err):
		return FailureMissingEvent
	case IsUnexpectedEvents(err):
		return FailureUnexpectedEvents
	case IsAssertionFailure(err):
		return FailureAssertion
	default:
		return ""
	}
}

// TickOf returns the tick a verification or action failure happened at.
func TickOf(err error) (int, bool) {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Time, true
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Time, true
	}
	return 0, false
}

func groupName(m marble.Moment) string {
	switch m.Kind {
	case marble.KindOrderedGroup:
		return "an ordered group"
	case marble.KindUnorderedGroup:
		return "an unordered group"
	default:
		return "marble"
	}
}

func listEvents(events []any) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = fmt.Sprint(e)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
