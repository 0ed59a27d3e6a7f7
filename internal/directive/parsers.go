package directive

import (
	"path"
	"regexp"

	"git.home.luguber.info/inful/mdsite/internal/foundation"
)

var referencePattern = regexp.MustCompile(`^\[(include|layout)\]\(((?:\./|\.\./)[^()\s]+)\)$`)

// Syntax parses reference directives, appending SourceExt to targets that
// have no extension.
type Syntax struct {
	SourceExt string
}

var defaultSyntax = Syntax{SourceExt: ".md"}

var (
	// IncludeParser claims {{[include](./path.md)}}.
	IncludeParser Parser = defaultSyntax.Include
	// LayoutParser claims {{[layout](./path.md)}} and {{slot}}.
	LayoutParser Parser = defaultSyntax.Layout
	// DefaultParser claims every known directive.
	DefaultParser = Combine(IncludeParser, LayoutParser)
)

func (s Syntax) Include(m Match) (Tag, bool) {
	return s.reference(m, KindInclude)
}

func (s Syntax) Layout(m Match) (Tag, bool) {
	if m.Inner == string(KindSlot) {
		return Tag{Kind: KindSlot, Match: m, Target: foundation.None[string]()}, true
	}
	return s.reference(m, KindLayout)
}

func (s Syntax) reference(m Match, kind Kind) (Tag, bool) {
	sub := referencePattern.FindStringSubmatch(m.Inner)
	if sub == nil || Kind(sub[1]) != kind {
		return Tag{}, false
	}
	target := sub[2]
	if path.Ext(target) == "" {
		ext := s.SourceExt
		if ext == "" {
			ext = defaultSyntax.SourceExt
		}
		target += ext
	}
	return Tag{Kind: kind, Match: m, Target: foundation.Some(target)}, true
}
