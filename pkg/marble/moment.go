package marble

import "strings"

// Kind classifies what happens at one tick.
type Kind int

const (
	// KindEmpty means no marble at this tick.
	KindEmpty Kind = iota
	// KindSingle means exactly one marble at this tick.
	KindSingle
	// KindOrderedGroup means two or more marbles that must occur in order.
	KindOrderedGroup
	// KindUnorderedGroup means two or more marbles in any order.
	KindUnorderedGroup
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSingle:
		return "single"
	case KindOrderedGroup:
		return "ordered_group"
	case KindUnorderedGroup:
		return "unordered_group"
	default:
		return "unknown"
	}
}

// Moment is what happens at integer time Time.
//
// Pos is the rune index in the source sequence where the moment starts. It
// differs from Time once an origin marker shifted the sequence or leading
// whitespace was trimmed, and is what diagnostics point at.
type Moment struct {
	Time    int      `json:"time"`
	Pos     int      `json:"pos"`
	Kind    Kind     `json:"kind"`
	Marbles []string `json:"marbles"`
}

// Empty returns a moment without marbles.
func Empty(time, pos int) Moment {
	return Moment{Time: time, Pos: pos, Kind: KindEmpty, Marbles: []string{}}
}

// Single returns a moment holding one marble.
func Single(time, pos int, marble string) Moment {
	return Moment{Time: time, Pos: pos, Kind: KindSingle, Marbles: []string{marble}}
}

// Group returns an ordered or unordered group moment.
// Callers must pass at least two marbles; the parsers enforce this.
func Group(time, pos int, ordered bool, marbles []string) Moment {
	kind := KindUnorderedGroup
	if ordered {
		kind = KindOrderedGroup
	}
	cp := make([]string, len(marbles))
	copy(cp, marbles)
	return Moment{Time: time, Pos: pos, Kind: kind, Marbles: cp}
}

// Shift returns a copy of m moved by offset ticks.
func (m Moment) Shift(offset int) Moment {
	m.Time += offset
	return m
}

// IsEmpty reports whether nothing happens at this moment.
func (m Moment) IsEmpty() bool { return m.Kind == KindEmpty }

// IsGroup reports whether m is an ordered or unordered group.
func (m Moment) IsGroup() bool {
	return m.Kind == KindOrderedGroup || m.Kind == KindUnorderedGroup
}

// String renders the moment the way it would be written in a diagram.
func (m Moment) String() string {
	switch m.Kind {
	case KindEmpty:
		return "-"
	case KindSingle:
		return m.Marbles[0]
	case KindOrderedGroup:
		return "(" + strings.Join(m.Marbles, " ") + ")"
	case KindUnorderedGroup:
		return "<" + strings.Join(m.Marbles, " ") + ">"
	default:
		return "?"
	}
}

// Parser turns a marble diagram into moments.
type Parser func(sequence string) ([]Moment, error)

// ParseNullable parses an optional sequence, failing with NullSequence when
// seq is nil.
func ParseNullable(parse Parser, seq *string) ([]Moment, error) {
	if seq == nil {
		return nil, &ParseError{Kind: ErrNullSequence, Pos: -1, Message: "sequence is null"}
	}
	return parse(*seq)
}

// ParserByName resolves the parser names used in scenario files and flags.
func ParserByName(name string) (Parser, bool) {
	switch name {
	case "", "single":
		return Parse, true
	case "multi", "multi-char":
		return ParseMultiChar, true
	default:
		return nil, false
	}
}
