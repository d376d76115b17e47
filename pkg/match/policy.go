package match

import "fmt"

// Check decides whether event satisfies marble. A nil error is a match.
type Check[E any] func(marble string, event E) error

// Run calls check and reports a panic as an error.
func (check Check[E]) Run(marble string, event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check for marble %q panicked: %v", marble, r)
		}
	}()
	return check(marble, event)
}

// Build checks every marble against every event.
func Build[E any](marbles []string, events []E, check Check[E]) *Table {
	t := &Table{}
	for _, m := range marbles {
		cells := make([]Cell, len(events))
		for i, e := range events {
			cells[i] = Cell{Marble: m, Event: e, Err: check.Run(m, e)}
		}
		t.AddRow(m, cells)
	}
	return t
}

// Ordered zips marbles with events and checks each pair. Surplus marbles or
// events are ignored; callers decide whether a count mismatch is an error.
func Ordered[E any](marbles []string, events []E, check Check[E]) []Cell {
	n := min(len(marbles), len(events))
	pairs := make([]Cell, n)
	for i := 0; i < n; i++ {
		pairs[i] = Cell{Marble: marbles[i], Event: events[i], Err: check.Run(marbles[i], events[i])}
	}
	return pairs
}

// Failed returns the cells whose check did not succeed.
func Failed(cells []Cell) []Cell {
	var out []Cell
	for _, c := range cells {
		if !c.Succeeded() {
			out = append(out, c)
		}
	}
	return out
}

// Unordered requires every marble and every event to be matched by
// something. It does not require a consistent one-to-one assignment.
func Unordered[E any](marbles []string, events []E, check Check[E]) (*Table, bool) {
	t := Build(marbles, events, check)
	return t, t.AllRowsAtLeastOneSuccess() && t.AllColumnsAtLeastOneSuccess()
}

// Rows requires every marble to be matched by some event. Extra events are
// allowed.
func Rows[E any](marbles []string, events []E, check Check[E]) (*Table, bool) {
	t := Build(marbles, events, check)
	return t, t.AllRowsAtLeastOneSuccess()
}

// AnyRow requires some event to match marble.
func AnyRow[E any](marble string, events []E, check Check[E]) (*Table, bool) {
	return Rows([]string{marble}, events, check)
}

// InOrder requires the marbles to be matched in their relative order, with
// any number of other events in between.
func InOrder[E any](marbles []string, events []E, check Check[E]) (*Table, bool) {
	t := Build(marbles, events, check)
	return t, t.MonotonicSuccess()
}
