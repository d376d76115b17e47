package marble

import "strings"

// UpArrow marks the offending position under a rendered sequence.
const UpArrow = "↑"

// Pointer renders sequence on its own line with an arrow under rune pos:
//
//	"\n  -x-\n   ↑"
func Pointer(sequence string, pos int) string {
	if pos < 0 {
		pos = 0
	}
	return "\n  " + sequence + "\n  " + strings.Repeat(" ", pos) + UpArrow
}
