package timeline

import (
	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/match"
)

// Expect builds a strict expectation timeline: at every tick the producer
// must yield exactly the marbles of the moment and nothing else.
//
//   - an empty moment allows no events
//   - a single marble needs one event accepted by check
//   - an ordered group needs one event per marble, accepted pairwise in order
//   - an unordered group needs one event per marble, with every marble and
//     every event accepted by something
func Expect[E any](parse marble.Parser, sequence string, producer Producer[E], check match.Check[E]) (*Expectations, error) {
	moments, err := parse(sequence)
	if err != nil {
		return nil, err
	}

	var marbles []ExpectedMarble
	for _, m := range moments {
		switch m.Kind {
		case marble.KindSingle:
			marbles = append(marbles, expected(m, expectSingle(m, producer, check)))
		case marble.KindOrderedGroup:
			marbles = append(marbles, expected(m, expectOrdered(m, producer, check)))
		case marble.KindUnorderedGroup:
			marbles = append(marbles, expected(m, expectUnordered(m, producer, check)))
		}
		marbles = append(marbles, nothingElse(m, expectNothing(m, producer)))
	}
	return NewExpectations(sequence, marbles), nil
}

func expectSingle[E any](m marble.Moment, producer Producer[E], check match.Check[E]) func() error {
	return func() error {
		event, ok := producer.Next()
		if !ok {
			return &MissingEventError{Moment: m, Expected: 1}
		}
		if err := check.Run(m.Marbles[0], event); err != nil {
			return &AssertionError{Moment: m, Err: err}
		}
		return nil
	}
}

func expectOrdered[E any](m marble.Moment, producer Producer[E], check match.Check[E]) func() error {
	return func() error {
		events := take(producer, len(m.Marbles))
		if len(events) < len(m.Marbles) {
			return &MissingEventError{Moment: m, Expected: len(m.Marbles), Received: boxed(events)}
		}
		if failed := match.Failed(match.Ordered(m.Marbles, events, check)); len(failed) > 0 {
			return &AssertionError{Moment: m, Pairs: failed}
		}
		return nil
	}
}

func expectUnordered[E any](m marble.Moment, producer Producer[E], check match.Check[E]) func() error {
	return func() error {
		events := take(producer, len(m.Marbles))
		if len(events) < len(m.Marbles) {
			return &MissingEventError{Moment: m, Expected: len(m.Marbles), Received: boxed(events)}
		}
		if table, ok := match.Unordered(m.Marbles, events, check); !ok {
			return &AssertionError{Moment: m, Table: table}
		}
		return nil
	}
}

func expectNothing[E any](m marble.Moment, producer Producer[E]) func() error {
	return func() error {
		if events := drain(producer); len(events) > 0 {
			return &UnexpectedEventsError{Time: m.Time, Events: boxed(events)}
		}
		return nil
	}
}

// ExpectAtLeast builds a lenient expectation timeline. Every moment drains
// whatever the producer holds at its tick and only requires its marbles to be
// found among those events; surplus events are ignored and empty moments
// discard what they drain.
//
//   - a single marble needs some event accepted by check
//   - an ordered group needs its marbles accepted at strictly increasing
//     event positions
//   - an unordered group needs every marble accepted by some event and every
//     drained event accepted by some marble
func ExpectAtLeast[E any](parse marble.Parser, sequence string, producer Producer[E], check match.Check[E]) (*Expectations, error) {
	moments, err := parse(sequence)
	if err != nil {
		return nil, err
	}

	marbles := make([]ExpectedMarble, 0, len(moments))
	for _, m := range moments {
		marbles = append(marbles, expected(m, expectAtLeast(m, producer, check)))
	}
	return NewExpectations(sequence, marbles), nil
}

func expectAtLeast[E any](m marble.Moment, producer Producer[E], check match.Check[E]) func() error {
	return func() error {
		events := drain(producer)

		var (
			table *match.Table
			ok    bool
		)
		switch m.Kind {
		case marble.KindEmpty:
			return nil
		case marble.KindSingle:
			table, ok = match.AnyRow(m.Marbles[0], events, check)
		case marble.KindOrderedGroup:
			table, ok = match.InOrder(m.Marbles, events, check)
		default:
			table, ok = match.Unordered(m.Marbles, events, check)
		}

		switch {
		case ok:
			return nil
		case len(events) == 0:
			return &MissingEventError{Moment: m, Expected: len(m.Marbles)}
		default:
			return &AssertionError{Moment: m, Table: table}
		}
	}
}

// Assert builds a timeline that calls fn for every marble at its tick without
// consulting any producer. All marbles of a group are checked at the group's
// tick.
func Assert(parse marble.Parser, sequence string, fn func(marble string) error) (*Expectations, error) {
	moments, err := parse(sequence)
	if err != nil {
		return nil, err
	}

	var marbles []ExpectedMarble
	for _, m := range moments {
		for _, name := range m.Marbles {
			single := marble.Single(m.Time, m.Pos, name)
			marbles = append(marbles, expected(single, func() error {
				if err := match.Check[struct{}](func(marble string, _ struct{}) error {
					return fn(marble)
				}).Run(name, struct{}{}); err != nil {
					return &AssertionError{Moment: single, Err: err}
				}
				return nil
			}))
		}
	}
	return NewExpectations(sequence, marbles), nil
}
