// Package marble parses marble diagrams into timed sequences of moments.
//
// # Grammar
//
// A marble diagram is scanned one character per tick:
//
//	-  or space    nothing happens at this tick
//	a              a single marble named "a"
//	(a b)          an ordered group, all marbles at one tick
//	<a b>          an unordered group, all marbles at one tick
//	^              marks tick 0; the whole sequence is shifted around it
//
// Two parsers are provided. Parse treats every character as its own marble.
// ParseMultiChar glues consecutive characters into one marble name, trims
// surrounding whitespace, and accepts "," and space as separators inside
// groups:
//
//	moments, err := marble.ParseMultiChar("a-(cx, dx)--f")
//
// Time is always measured in scanned characters: a group or a multi-char
// marble occupies the tick it starts on and hides the ticks of the remaining
// characters. ParseMultiChar fills hidden ticks with empty moments, Parse
// leaves them out.
//
// The parser in use is never global state; callers pass a Parser value to
// whatever needs one.
package marble
