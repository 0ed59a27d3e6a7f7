// Package directive extracts {{...}} directive markers from document text and
// parses them into typed tags (include, layout, slot).
package directive

import (
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/foundation"
)

// Kind identifies a directive.
type Kind string

const (
	KindInclude Kind = "include"
	KindLayout  Kind = "layout"
	KindSlot    Kind = "slot"
)

// Match is a raw {{...}} span.
//
// Text is the full marker including braces, Inner the trimmed content between
// them. Start and End are byte offsets into the scanned text, End exclusive.
type Match struct {
	Text  string
	Inner string
	Start int
	End   int
}

// Tag is a parsed directive.
type Tag struct {
	Kind   Kind
	Match  Match
	Target foundation.Option[string]
}

// Parser inspects a raw match and either claims it as a Tag or rejects it.
type Parser func(Match) (Tag, bool)

var markerPattern = regexp.MustCompile(`\{\{([^{}\n]+?)\}\}`)

// Extract returns the tags the parser accepts, in source order. Markers no
// parser accepts are ignored and stay in the text as literals.
func Extract(text string, parser Parser) []Tag {
	tags := make([]Tag, 0)
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		m := Match{
			Text:  text[loc[0]:loc[1]],
			Inner: strings.TrimSpace(text[loc[2]:loc[3]]),
			Start: loc[0],
			End:   loc[1],
		}
		if m.Inner == "" {
			continue
		}
		if tag, ok := parser(m); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Combine returns a parser that tries each parser in order. The first one to
// accept a marker claims it.
func Combine(parsers ...Parser) Parser {
	return func(m Match) (Tag, bool) {
		for _, p := range parsers {
			if tag, ok := p(m); ok {
				return tag, true
			}
		}
		return Tag{}, false
	}
}

// OfKind filters tags by kind, preserving order.
func OfKind(tags []Tag, kind Kind) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// ResolveTarget resolves a tag target relative to the directory of the
// document that owns it.
func ResolveTarget(owner, target string) string {
	return filepath.Join(filepath.Dir(owner), filepath.FromSlash(target))
}
