package markdown

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Edit represents a targeted byte-range replacement.
//
// Start and End are byte offsets into the original source, with End exclusive.
// Replacement replaces source[Start:End].
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// ApplyEdits applies a set of byte-range edits to source and returns the updated content.
//
// Edits must be non-overlapping and refer to offsets in the original source.
// ApplyEdits sorts edits and applies them from the end of the text toward the beginning
// so earlier edits do not invalidate offsets for later edits.
func ApplyEdits(source string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < 0 {
			return "", fmt.Errorf("invalid edit[%d]: negative range", i)
		}
		if e.End < e.Start {
			return "", fmt.Errorf("invalid edit[%d]: end before start", i)
		}
		if e.End > len(source) {
			return "", fmt.Errorf("invalid edit[%d]: range out of bounds", i)
		}
		if i > 0 {
			prev := sorted[i-1]
			// Sorted by Start descending: the current edit must end at or
			// before the previous edit's start.
			if e.End > prev.Start {
				return "", errors.New("invalid edits: overlapping ranges")
			}
		}
	}

	var out strings.Builder
	out.Grow(len(source))
	cursor := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		out.WriteString(source[cursor:e.Start])
		out.WriteString(e.Replacement)
		cursor = e.End
	}
	out.WriteString(source[cursor:])
	return out.String(), nil
}
