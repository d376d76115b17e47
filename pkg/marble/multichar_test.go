package marble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestParseMultiChar_EmptyString(t *testing.T) {
	moments, err := ParseMultiChar("")
	require.NoError(t, err)
	assert.Empty(t, moments)
}

func TestParseMultiChar_RejectsMalformed(t *testing.T) {
	tests := []struct {
		sequence string
		kind     ParseErrorKind
	}{
		{"((", ErrNestedGroup},
		{"())", ErrGroupTooSmall},
		{")", ErrUnbalancedGroup},
		{"(", ErrUnbalancedGroup},
		{"<<", ErrNestedGroup},
		{"<>>", ErrGroupTooSmall},
		{">", ErrUnbalancedGroup},
		{"<", ErrUnbalancedGroup},
		{"(ab>", ErrUnbalancedGroup},
		{"<a>", ErrGroupTooSmall},
		{"(a)", ErrGroupTooSmall},
		{"x<a>", ErrGroupTooSmall},
		{"(a)x", ErrGroupTooSmall},
		{"<>", ErrGroupTooSmall},
		{"x<>", ErrGroupTooSmall},
		{"<()>", ErrNestedGroup},
		{"(<>)", ErrNestedGroup},
		{"^^", ErrDuplicateOriginMarker},
		{"^(^ a)", ErrDuplicateOriginMarker},
		{"(^^)", ErrDuplicateOriginMarker},
		{"<^ a>^", ErrDuplicateOriginMarker},
		{"^<^ a>", ErrDuplicateOriginMarker},
		{"^abc^", ErrDuplicateOriginMarker},
		{"(-)", ErrDashInGroup},
		{"(^-)", ErrDashInGroup},
		{"(ab-)", ErrDashInGroup},
		{"ab<-b>", ErrDashInGroup},
		{",", ErrUnexpectedComma},
		{"a,b", ErrUnexpectedComma},
		{",a-,a", ErrUnexpectedComma},
		{"(a,b),", ErrUnexpectedComma},
		{"<a,b>,", ErrUnexpectedComma},
	}

	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			_, err := ParseMultiChar(tt.sequence)
			require.Error(t, err)
			assert.True(t, IsParseError(err, tt.kind), "expected %s, got %v", tt.kind, err)
		})
	}
}

func TestParseMultiChar_TimeIncreasesFromZero(t *testing.T) {
	moments, err := ParseMultiChar("a-c")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, times(moments))
}

func TestParseMultiChar_OriginAlone(t *testing.T) {
	moments, err := ParseMultiChar("^")
	require.NoError(t, err)
	require.Len(t, moments, 1)
	assert.Equal(t, 0, moments[0].Time)
	assert.Equal(t, []string{"^"}, moments[0].Marbles)
}

func TestParseMultiChar_OriginShift(t *testing.T) {
	moments, err := ParseMultiChar("a-c^d-f")
	require.NoError(t, err)
	assert.Equal(t, -3, moments[0].Time)
	assert.Equal(t, 0, moments[3].Time)
	assert.Equal(t, []string{"^"}, moments[3].Marbles)
}

func TestParseMultiChar_OriginInsideGroupIsGroupStart(t *testing.T) {
	tests := []struct {
		sequence string
		kind     Kind
	}{
		{"a-(c1^d1)-f", KindOrderedGroup},
		{"a-<c1^d1>-f", KindUnorderedGroup},
	}
	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			moments, err := ParseMultiChar(tt.sequence)
			require.NoError(t, err)
			assert.Equal(t, -2, moments[0].Time)
			assert.Equal(t, tt.kind, moments[2].Kind)
			assert.Equal(t, 0, moments[2].Time)
		})
	}
}

func TestParseMultiChar_GroupSeparators(t *testing.T) {
	tests := []struct {
		sequence string
		want     []string
	}{
		{"(cx dx)", []string{"cx", "dx"}},
		{"(cx, dx)", []string{"cx", "dx"}},
		{"<cx dx>", []string{"cx", "dx"}},
		{"<cx, dx>", []string{"cx", "dx"}},
		{"(cx,dx)", []string{"cx", "dx"}},
		{"<cx,dx>", []string{"cx", "dx"}},
		{"(cx dx, ex)", []string{"cx", "dx", "ex"}},
		{"<cx, dx ex>", []string{"cx", "dx", "ex"}},
		{"<cx^ex>", []string{"cx", "^", "ex"}},
		{"(cx^ex)", []string{"cx", "^", "ex"}},
		{"(cx ^ ex)", []string{"cx", "^", "ex"}},
		{"(cx, ^ ex)", []string{"cx", "^", "ex"}},
		{"(cx^ ex)", []string{"cx", "^", "ex"}},
		{"(^cx ex)", []string{"^", "cx", "ex"}},
		{"(^ cx ex)", []string{"^", "cx", "ex"}},
	}
	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			moments, err := ParseMultiChar(tt.sequence)
			require.NoError(t, err)
			require.NotEmpty(t, moments)
			assert.Equal(t, tt.want, moments[0].Marbles)
		})
	}
}

func TestParseMultiChar_GroupInMiddle(t *testing.T) {
	for _, sequence := range []string{"a-(cx dx)-f", "a-<cx dx>-f"} {
		t.Run(sequence, func(t *testing.T) {
			moments, err := ParseMultiChar(sequence)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "", "cx+dx"}, flatten(moments[:3]))
			assert.Equal(t, []int{0, 1, 2}, times(moments[:3]))

			last := moments[len(moments)-1]
			assert.Equal(t, []string{"f"}, last.Marbles)
			assert.Equal(t, len(sequence)-1, last.Time)
		})
	}
}

func TestParseMultiChar_MultipleGroups(t *testing.T) {
	tests := []struct {
		sequence string
		want     []string
	}{
		{"a-(c,d)e-(g,h)", []string{"a", "", "c+d", "", "", "", "", "e", "", "g+h", "", "", "", ""}},
		{"a-<c,d>e-<g,h>", []string{"a", "", "c+d", "", "", "", "", "e", "", "g+h", "", "", "", ""}},
		{"(c,d)e", []string{"c+d", "", "", "", "", "e"}},
		{"<c,d>e", []string{"c+d", "", "", "", "", "e"}},
		{"c (d e)", []string{"c", "", "d+e", "", "", "", ""}},
		{"c(d e)", []string{"c", "d+e", "", "", "", ""}},
		{"c <d e>", []string{"c", "", "d+e", "", "", "", ""}},
		{"c<d e>", []string{"c", "d+e", "", "", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.sequence, func(t *testing.T) {
			moments, err := ParseMultiChar(tt.sequence)
			require.NoError(t, err)
			assert.Equal(t, tt.want, flatten(moments))
			assert.Equal(t, span(len(tt.want)), times(moments))
		})
	}
}

func TestParseMultiChar_OneMomentPerTick(t *testing.T) {
	moments, err := ParseMultiChar("a-b-c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b", "", "c"}, flatten(moments))
	assert.Equal(t, []Kind{KindSingle, KindEmpty, KindSingle, KindEmpty, KindSingle},
		[]Kind{moments[0].Kind, moments[1].Kind, moments[2].Kind, moments[3].Kind, moments[4].Kind})
}

func TestParseMultiChar_HiddenTicksBecomeEmpty(t *testing.T) {
	moments, err := ParseMultiChar("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "", ""}, flatten(moments))
	assert.Equal(t, []int{0, 1, 2}, times(moments))

	moments, err = ParseMultiChar("(a,b)")
	require.NoError(t, err)
	assert.Equal(t, []string{"a+b", "", "", "", ""}, flatten(moments))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, times(moments))
}

func TestParseMultiChar_SpaceActsAsDash(t *testing.T) {
	withSpaces, err := ParseMultiChar("a b  c")
	require.NoError(t, err)
	withDashes, err := ParseMultiChar("a-b--c")
	require.NoError(t, err)
	assert.Equal(t, flatten(withDashes), flatten(withSpaces))
	assert.Equal(t, times(withDashes), times(withSpaces))
}

func TestParseMultiChar_TrimsSurroundingWhitespace(t *testing.T) {
	moments, err := ParseMultiChar("  ab-c \t")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "", "", "c"}, flatten(moments))
	assert.Equal(t, 0, moments[0].Time)
	assert.Equal(t, 2, moments[0].Pos, "positions refer to the untrimmed input")
}

func TestParseMultiChar_ErrorPositionIncludesTrimmedPrefix(t *testing.T) {
	_, err := ParseMultiChar("  a,b")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrUnexpectedComma, pe.Kind)
	assert.Equal(t, 3, pe.Pos)
	assert.Equal(t, "  a,b", pe.Sequence)
}
