package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEdits_NoEdits(t *testing.T) {
	out, err := ApplyEdits("unchanged", nil)
	require.NoError(t, err)
	require.Equal(t, "unchanged", out)
}

func TestApplyEdits_MultipleEditsAnyOrder(t *testing.T) {
	src := "A: ./one.md\nB: ./two.md\n"
	one := strings.Index(src, "./one.md")
	two := strings.Index(src, "./two.md")

	out, err := ApplyEdits(src, []Edit{
		{Start: one, End: one + len("./one.md"), Replacement: "./one.html"},
		{Start: two, End: two + len("./two.md"), Replacement: "./2.html"},
	})
	require.NoError(t, err)
	require.Equal(t, "A: ./one.html\nB: ./2.html\n", out)
}

func TestApplyEdits_ReplacementLongerThanRange(t *testing.T) {
	src := "head {{x}} tail"
	start := strings.Index(src, "{{x}}")

	out, err := ApplyEdits(src, []Edit{{Start: start, End: start + 5, Replacement: "line one\nline two"}})
	require.NoError(t, err)
	require.Equal(t, "head line one\nline two tail", out)
}

func TestApplyEdits_RejectsOverlappingEdits(t *testing.T) {
	_, err := ApplyEdits("abcdef", []Edit{
		{Start: 1, End: 4, Replacement: "X"},
		{Start: 3, End: 5, Replacement: "Y"},
	})
	require.Error(t, err)
}

func TestApplyEdits_RejectsOutOfBounds(t *testing.T) {
	_, err := ApplyEdits("abc", []Edit{{Start: 1, End: 10, Replacement: "X"}})
	require.Error(t, err)

	_, err = ApplyEdits("abc", []Edit{{Start: 2, End: 1, Replacement: "X"}})
	require.Error(t, err)
}
