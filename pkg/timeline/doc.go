// Package timeline turns parsed marble diagrams into scheduled work.
//
// Inputs fire an action for every marble at its tick. Expectations consult a
// Producer at every tick and check what it yields against the marbles of the
// moment:
//
//	in, _ := timeline.InputsFor(marble.Parse, "a-b", send)
//	exp, _ := timeline.Expect(marble.Parse, "a-b", probe, check)
//
// Strict expectations (Expect) require events at exactly the tick of their
// marble and fail when anything else arrives. At-least expectations
// (ExpectAtLeast) drain whatever is pending at a tick and only require the
// marbles to be found in it.
//
// A Producer is a shared, sequential-access resource. Several expectation
// timelines may read from the same producer; each call advances one cursor,
// so an event is consumed by exactly one check. Callers must not call the
// same producer from several goroutines at once.
package timeline
