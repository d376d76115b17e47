package marble

// openGroup tracks a group while its characters are scanned.
type openGroup struct {
	time    int
	pos     int
	opener  rune
	closer  rune
	marbles []string
}

func newOpenGroup(opener rune, time, pos int) *openGroup {
	closer := ')'
	if opener == '<' {
		closer = '>'
	}
	return &openGroup{time: time, pos: pos, opener: opener, closer: closer}
}

func (g *openGroup) ordered() bool { return g.opener == '(' }

func isOpener(c rune) bool { return c == '(' || c == '<' }

func isCloser(c rune) bool { return c == ')' || c == '>' }

// shiftToOrigin moves every moment so that the origin marker ends up at 0.
func shiftToOrigin(moments []Moment, origin int, hasOrigin bool) []Moment {
	if !hasOrigin || origin == 0 {
		return moments
	}
	for i := range moments {
		moments[i] = moments[i].Shift(-origin)
	}
	return moments
}

// Parse is the single-character parser: every character outside a group is
// one tick, and every character inside a group is one marble.
//
// Ticks absorbed by a group do not produce moments, so "ab(cd)ef" yields
// moments at ticks 0, 1, 2, 6 and 7.
func Parse(sequence string) ([]Moment, error) {
	seq := []rune(sequence)
	moments := make([]Moment, 0, len(seq))

	var (
		group     *openGroup
		origin    int
		hasOrigin bool
	)

	for pos, c := range seq {
		if group == nil {
			switch {
			case c == '-' || c == ' ':
				moments = append(moments, Empty(pos, pos))
			case c == '^':
				if hasOrigin {
					return nil, newParseError(ErrDuplicateOriginMarker, seq, pos, "only one ^ allowed")
				}
				origin, hasOrigin = pos, true
				moments = append(moments, Single(pos, pos, "^"))
			case isOpener(c):
				group = newOpenGroup(c, pos, pos)
			case isCloser(c):
				return nil, newParseError(ErrUnbalancedGroup, seq, pos, "%q without opening group", c)
			default:
				moments = append(moments, Single(pos, pos, string(c)))
			}
			continue
		}

		switch {
		case c == '-' || c == ' ':
			return nil, newParseError(ErrDashInGroup, seq, pos, "%q is not allowed within a group", c)
		case isOpener(c):
			return nil, newParseError(ErrNestedGroup, seq, pos, "cannot nest groups")
		case c == group.closer:
			if len(group.marbles) < 2 {
				return nil, newParseError(ErrGroupTooSmall, seq, group.pos,
					"group needs at least 2 marbles, got %d", len(group.marbles))
			}
			moments = append(moments, Group(group.time, group.pos, group.ordered(), group.marbles))
			group = nil
		case isCloser(c):
			return nil, newParseError(ErrUnbalancedGroup, seq, pos, "%q closes a group opened with %q", c, group.opener)
		case c == '^':
			if hasOrigin {
				return nil, newParseError(ErrDuplicateOriginMarker, seq, pos, "only one ^ allowed")
			}
			origin, hasOrigin = group.time, true
			group.marbles = append(group.marbles, "^")
		default:
			group.marbles = append(group.marbles, string(c))
		}
	}

	if group != nil {
		return nil, newParseError(ErrUnbalancedGroup, seq, group.pos, "%q without closing %q", group.opener, group.closer)
	}

	return shiftToOrigin(moments, origin, hasOrigin), nil
}
