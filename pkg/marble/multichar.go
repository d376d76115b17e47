package marble

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// multiCharScanner holds the state of one ParseMultiChar call.
type multiCharScanner struct {
	source    []rune // untrimmed input, for error rendering
	lead      int    // runes trimmed from the front
	moments   []Moment
	token     []rune
	tokenTime int
	group     *openGroup
	origin    int
	hasOrigin bool
}

// ParseMultiChar is the multi-character parser. Consecutive non-special
// characters form one marble; inside groups "," and space separate marbles.
// Leading and trailing whitespace is ignored.
//
// Every tick in range gets a moment: the ticks hidden by a long marble or a
// group become empty moments, so "abc" yields "abc" at 0 and empties at 1
// and 2.
func ParseMultiChar(sequence string) ([]Moment, error) {
	left := strings.TrimLeftFunc(sequence, unicode.IsSpace)
	body := []rune(strings.TrimRightFunc(left, unicode.IsSpace))

	s := &multiCharScanner{
		source:  []rune(sequence),
		lead:    utf8.RuneCountInString(sequence) - utf8.RuneCountInString(left),
		moments: make([]Moment, 0, len(body)),
	}

	for time, c := range body {
		var err error
		if s.group == nil {
			err = s.outside(time, c)
		} else {
			err = s.inside(time, c)
		}
		if err != nil {
			return nil, err
		}
	}

	if s.group != nil {
		return nil, s.fail(ErrUnbalancedGroup, s.group.time, "%q without closing %q", s.group.opener, s.group.closer)
	}
	s.flushMarble(len(body))

	return shiftToOrigin(s.moments, s.origin, s.hasOrigin), nil
}

func (s *multiCharScanner) outside(time int, c rune) error {
	switch {
	case c == ' ' || c == '-':
		s.flushMarble(time)
		s.moments = append(s.moments, Empty(time, s.lead+time))
	case c == '^':
		s.flushMarble(time)
		if err := s.markOrigin(time, time); err != nil {
			return err
		}
		s.moments = append(s.moments, Single(time, s.lead+time, "^"))
	case isOpener(c):
		s.flushMarble(time)
		s.group = newOpenGroup(c, time, s.lead+time)
	case isCloser(c):
		return s.fail(ErrUnbalancedGroup, time, "%q without opening group", c)
	case c == ',':
		return s.fail(ErrUnexpectedComma, time, "comma should not occur outside of a group")
	default:
		s.grow(time, c)
	}
	return nil
}

func (s *multiCharScanner) inside(time int, c rune) error {
	switch {
	case c == ',' || c == ' ':
		s.flushToGroup()
	case c == '-':
		return s.fail(ErrDashInGroup, time, "cannot use - within a group")
	case c == '^':
		if err := s.markOrigin(time, s.group.time); err != nil {
			return err
		}
		s.flushToGroup()
		s.group.marbles = append(s.group.marbles, "^")
	case isOpener(c):
		return s.fail(ErrNestedGroup, time, "cannot nest groups")
	case c == s.group.closer:
		s.flushToGroup()
		if len(s.group.marbles) < 2 {
			return s.fail(ErrGroupTooSmall, s.group.time,
				"group needs at least 2 marbles, got %d", len(s.group.marbles))
		}
		g := s.group
		s.moments = append(s.moments, Group(g.time, g.pos, g.ordered(), g.marbles))
		s.group = nil
		s.addEmptyMoments(time + 1)
	case isCloser(c):
		return s.fail(ErrUnbalancedGroup, time, "%q closes a group opened with %q", c, s.group.opener)
	default:
		s.grow(s.group.time, c)
	}
	return nil
}

func (s *multiCharScanner) markOrigin(at, originTime int) error {
	if s.hasOrigin {
		return s.fail(ErrDuplicateOriginMarker, at, "only one ^ allowed")
	}
	s.origin, s.hasOrigin = originTime, true
	return nil
}

func (s *multiCharScanner) grow(time int, c rune) {
	if len(s.token) == 0 {
		s.tokenTime = time
	}
	s.token = append(s.token, c)
}

func (s *multiCharScanner) flushToGroup() {
	if len(s.token) == 0 {
		return
	}
	s.group.marbles = append(s.group.marbles, string(s.token))
	s.token = s.token[:0]
}

// flushMarble emits the pending marble and the empty ticks it hid, up to
// but not including time.
func (s *multiCharScanner) flushMarble(time int) {
	if len(s.token) == 0 {
		return
	}
	s.moments = append(s.moments, Single(s.tokenTime, s.lead+s.tokenTime, string(s.token)))
	s.token = s.token[:0]
	s.addEmptyMoments(time)
}

func (s *multiCharScanner) addEmptyMoments(until int) {
	for t := s.moments[len(s.moments)-1].Time + 1; t < until; t++ {
		s.moments = append(s.moments, Empty(t, s.lead+t))
	}
}

func (s *multiCharScanner) fail(kind ParseErrorKind, time int, format string, args ...any) *ParseError {
	return newParseError(kind, s.source, s.lead+time, format, args...)
}
