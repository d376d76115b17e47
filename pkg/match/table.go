package match

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Cell is the outcome of checking one marble against one event.
type Cell struct {
	Marble string
	Event  any
	Err    error
}

// Succeeded reports whether the check accepted the event.
func (c Cell) Succeeded() bool { return c.Err == nil }

// Table holds check outcomes: one row per expected marble, one column per
// received event in receipt order. Rows are expected to be equally long.
type Table struct {
	marbles []string
	rows    [][]Cell
}

// AddRow appends the outcomes for marble.
func (t *Table) AddRow(marble string, cells []Cell) {
	row := make([]Cell, len(cells))
	copy(row, cells)
	t.marbles = append(t.marbles, marble)
	t.rows = append(t.rows, row)
}

// Rows returns the number of marbles in the table.
func (t *Table) Rows() int { return len(t.rows) }

// Columns returns the number of events in the table.
func (t *Table) Columns() int {
	if len(t.rows) == 0 {
		return 0
	}
	return len(t.rows[0])
}

// Cell returns the outcome at row r, column c.
func (t *Table) Cell(r, c int) Cell { return t.rows[r][c] }

// AllRowsAtLeastOneSuccess reports whether every marble was accepted by at
// least one event.
func (t *Table) AllRowsAtLeastOneSuccess() bool {
	for r := range t.rows {
		if t.firstSuccess(r) < 0 {
			return false
		}
	}
	return true
}

// AllColumnsAtLeastOneSuccess reports whether every event was accepted for at
// least one marble. It is vacuously true for an empty table.
func (t *Table) AllColumnsAtLeastOneSuccess() bool {
	for c := 0; c < t.Columns(); c++ {
		if !t.columnHasSuccess(c) {
			return false
		}
	}
	return true
}

// MonotonicSuccess reports whether the first accepting event of every row
// sits strictly right of the previous row's. A row without any success breaks
// monotonicity. Tables with fewer than two rows only need their row to
// succeed, and an empty table is monotonic.
func (t *Table) MonotonicSuccess() bool {
	last := -1
	for r := range t.rows {
		first := t.firstSuccess(r)
		if first <= last {
			return false
		}
		last = first
	}
	return true
}

func (t *Table) firstSuccess(r int) int {
	for c, cell := range t.rows[r] {
		if cell.Succeeded() {
			return c
		}
	}
	return -1
}

func (t *Table) columnHasSuccess(c int) bool {
	for _, row := range t.rows {
		if c < len(row) && row[c].Succeeded() {
			return true
		}
	}
	return false
}

type failure struct {
	id  string
	msg string
}

// String renders the table as a summary grid followed by the event legend and
// the messages of the problem cells.
//
//	Summary:
//	  e0   e1
//	a ✔   ✔
//	b ❌a  ❌b
//
// A failing cell is only a problem, and gets a letter, when neither its row
// nor its column was satisfied elsewhere.
func (t *Table) String() string {
	var buf strings.Builder

	failures := t.writeSummary(&buf)
	buf.WriteString("\n")

	buf.WriteString("Events:\n")
	for c := 0; c < t.Columns(); c++ {
		fmt.Fprintf(&buf, "e%d : %v\n", c, t.rows[0][c].Event)
	}
	buf.WriteString("\n")

	buf.WriteString("Failure messages:\n")
	for _, f := range failures {
		fmt.Fprintf(&buf, "%s: %s\n", f.id, f.msg)
	}
	return buf.String()
}

func (t *Table) writeSummary(buf *strings.Builder) []failure {
	width := 0
	for _, m := range t.marbles {
		width = max(width, utf8.RuneCountInString(m))
	}

	buf.WriteString("Summary:\n")
	headers := make([]string, t.Columns())
	for c := range headers {
		headers[c] = fmt.Sprintf("e%d", c)
	}
	buf.WriteString(strings.Repeat(" ", width+1))
	buf.WriteString(strings.Join(headers, "   "))
	buf.WriteString("\n")

	var (
		failures []failure
		next     = 'a'
	)
	for r, row := range t.rows {
		fmt.Fprintf(buf, "%*s ", width, t.marbles[r])
		rowSatisfied := t.firstSuccess(r) >= 0
		for c, cell := range row {
			var text string
			switch {
			case cell.Succeeded():
				text = "✔ "
			case rowSatisfied && t.columnHasSuccess(c):
				text = "❌ "
			default:
				text = "❌" + string(next)
				next++
				failures = append(failures, failure{id: text, msg: cell.Err.Error()})
			}
			buf.WriteString(text)
			buf.WriteString("  ")
		}
		buf.WriteString("\n")
	}
	return failures
}
