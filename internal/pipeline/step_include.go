package pipeline

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/mdsite/internal/directive"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
)

// Include replaces every {{[include](./target.md)}} marker with the
// processed content of the target document. Relative links in the included
// content are rebased onto the including document's directory. Markers inside
// code blocks and code spans are literal.
func Include(resolver Resolver, syntax directive.Syntax) Step {
	return Step{
		Name: StepInclude,
		Apply: func(doc *Document) (*Document, error) {
			tags := outsideCode(doc.Content, directive.Extract(doc.Content, syntax.Include))
			if len(tags) == 0 {
				return doc, nil
			}

			edits := make([]markdown.Edit, 0, len(tags))
			for _, tag := range tags {
				target := directive.ResolveTarget(doc.Path, tag.Target.Unwrap())
				included, err := resolver.Resolve(target)
				if err != nil {
					return nil, fmt.Errorf("include %s: %w", tag.Target.Unwrap(), err)
				}

				content, err := RebaseLinks(included.Content, filepath.Dir(target), filepath.Dir(doc.Path))
				if err != nil {
					return nil, err
				}
				edits = append(edits, markdown.Edit{
					Start:       tag.Match.Start,
					End:         tag.Match.End,
					Replacement: content,
				})
			}

			content, err := markdown.ApplyEdits(doc.Content, edits)
			if err != nil {
				return nil, err
			}
			out := doc.Clone()
			out.SetContent(content)
			return out, nil
		},
	}
}

// outsideCode drops tags that sit inside markdown code.
func outsideCode(content string, tags []directive.Tag) []directive.Tag {
	if len(tags) == 0 {
		return tags
	}
	code := markdown.CodeRanges(content)
	kept := tags[:0:0]
	for _, tag := range tags {
		if !markdown.InRanges(code, tag.Match.Start) {
			kept = append(kept, tag)
		}
	}
	return kept
}
