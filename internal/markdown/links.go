// Package markdown holds the small amount of markdown awareness the pipeline
// needs: locating relative link destinations (outside code) and applying
// byte-range edits to document text.
package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
)

// Link is an inline link or image whose destination is relative to the
// document (starts with "./" or "../").
//
// Start and End delimit the destination inside the scanned text, so callers
// can rewrite the destination without touching the link text.
type Link struct {
	Kind        LinkKind
	Text        string
	Destination string
	Start       int
	End         int
}

// Target returns the destination with any "#fragment" or "?query" removed.
func (l Link) Target() string {
	if i := strings.IndexAny(l.Destination, "#?"); i >= 0 {
		return l.Destination[:i]
	}
	return l.Destination
}

// Suffix returns the "#fragment" or "?query" part of the destination, if any.
func (l Link) Suffix() string {
	if i := strings.IndexAny(l.Destination, "#?"); i >= 0 {
		return l.Destination[i:]
	}
	return ""
}

var inlineLinkPattern = regexp.MustCompile(`(!?)\[([^\]\n]*)\]\(([^()\s]+)\)`)

// IsRelative reports whether dest is a document-relative reference.
func IsRelative(dest string) bool {
	return strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../")
}

// RelativeLinks returns the relative inline links and images in content, in
// source order. Links inside fenced code blocks, indented code blocks and
// inline code spans are skipped.
func RelativeLinks(content string) []Link {
	links := make([]Link, 0)
	if !strings.Contains(content, "](") {
		return links
	}

	code := CodeRanges(content)
	for _, m := range inlineLinkPattern.FindAllStringSubmatchIndex(content, -1) {
		if InRanges(code, m[0]) {
			continue
		}
		dest := content[m[6]:m[7]]
		if !IsRelative(dest) {
			continue
		}
		kind := LinkKindInline
		if m[3] > m[2] {
			kind = LinkKindImage
		}
		links = append(links, Link{
			Kind:        kind,
			Text:        content[m[4]:m[5]],
			Destination: dest,
			Start:       m[6],
			End:         m[7],
		})
	}
	return links
}

// CodeRanges returns the [start, end) byte ranges of code block lines and
// inline code spans in content, as goldmark parses them.
func CodeRanges(content string) [][2]int {
	root := goldmark.New().Parser().Parse(text.NewReader([]byte(content)))

	var ranges [][2]int
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				ranges = append(ranges, [2]int{seg.Start, seg.Stop})
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					ranges = append(ranges, [2]int{t.Segment.Start, t.Segment.Stop})
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return ranges
}

// InRanges reports whether pos falls inside one of ranges.
func InRanges(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}
