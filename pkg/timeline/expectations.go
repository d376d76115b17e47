package timeline

import (
	"github.com/divverence/MarbleTesting/pkg/marble"
)

// ExpectedMarble is one check scheduled at Time.
type ExpectedMarble struct {
	Time int
	Pos  int
	// Marble renders the moment being checked.
	Marble string
	// NothingElse marks the check that nothing beyond the moment's marbles
	// arrived at this tick.
	NothingElse bool
	Verify      func() error
}

// Expectations is an immutable set of checks together with the sequence they
// were built from.
type Expectations struct {
	sequence string
	marbles  []ExpectedMarble
	first    int
	last     int
}

// NewExpectations creates an expectation timeline from prepared checks.
func NewExpectations(sequence string, marbles []ExpectedMarble) *Expectations {
	e := &Expectations{sequence: sequence, marbles: make([]ExpectedMarble, len(marbles))}
	copy(e.marbles, marbles)
	for i, m := range e.marbles {
		if i == 0 || m.Time < e.first {
			e.first = m.Time
		}
		if i == 0 || m.Time > e.last {
			e.last = m.Time
		}
	}
	return e
}

// Sequence returns the source diagram.
func (e *Expectations) Sequence() string { return e.sequence }

// Marbles returns a copy of the scheduled checks.
func (e *Expectations) Marbles() []ExpectedMarble {
	cp := make([]ExpectedMarble, len(e.marbles))
	copy(cp, e.marbles)
	return cp
}

// Bounds returns the first and last tick with a check. ok is false when the
// timeline has no checks at all.
func (e *Expectations) Bounds() (first, last int, ok bool) {
	if len(e.marbles) == 0 {
		return 0, 0, false
	}
	return e.first, e.last, true
}

// Verify runs the positive checks scheduled at tick and returns the first
// failure wrapped in a VerificationError.
func (e *Expectations) Verify(tick int) error {
	return e.run(tick, false)
}

// VerifyNothingElse runs the nothing-else checks scheduled at tick. It must
// run after Verify for the same tick, since positive checks consume the
// events they expect.
func (e *Expectations) VerifyNothingElse(tick int) error {
	return e.run(tick, true)
}

func (e *Expectations) run(tick int, nothingElse bool) error {
	for _, m := range e.marbles {
		if m.Time != tick || m.NothingElse != nothingElse {
			continue
		}
		if err := m.Verify(); err != nil {
			return &VerificationError{
				Sequence:    e.sequence,
				Time:        m.Time,
				Pos:         m.Pos,
				Marble:      m.Marble,
				NothingElse: m.NothingElse,
				Err:         err,
			}
		}
	}
	return nil
}

func expected(m marble.Moment, verify func() error) ExpectedMarble {
	return ExpectedMarble{Time: m.Time, Pos: m.Pos, Marble: m.String(), Verify: verify}
}

func nothingElse(m marble.Moment, verify func() error) ExpectedMarble {
	return ExpectedMarble{Time: m.Time, Pos: m.Pos, Marble: m.String(), NothingElse: true, Verify: verify}
}
