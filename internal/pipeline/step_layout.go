package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/directive"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// Layout wraps a document in the layout named by its {{[layout](./l.md)}}
// marker. The layout must contain exactly one {{slot}}, which is replaced by
// the document content with the marker removed. Layout markers inside code
// in the document are literal; the layout itself is a template and its slot
// is found anywhere.
func Layout(resolver Resolver, syntax directive.Syntax) Step {
	return Step{
		Name: StepLayout,
		Apply: func(doc *Document) (*Document, error) {
			layouts := directive.OfKind(outsideCode(doc.Content, directive.Extract(doc.Content, syntax.Layout)), directive.KindLayout)
			switch {
			case len(layouts) == 0:
				return doc, nil
			case len(layouts) > 1:
				return nil, errors.LayoutError(doc.Path,
					fmt.Sprintf("document declares %d layouts, at most one is allowed", len(layouts)))
			}

			tag := layouts[0]
			target := directive.ResolveTarget(doc.Path, tag.Target.Unwrap())
			layout, err := resolver.Resolve(target)
			if err != nil {
				return nil, fmt.Errorf("layout %s: %w", tag.Target.Unwrap(), err)
			}

			slots := directive.OfKind(directive.Extract(layout.Content, syntax.Layout), directive.KindSlot)
			if len(slots) != 1 {
				return nil, errors.LayoutError(target,
					fmt.Sprintf("layout must contain exactly one slot, found %d", len(slots)))
			}
			slot := slots[0]

			fromDir, toDir := filepath.Dir(target), filepath.Dir(doc.Path)
			before, err := RebaseLinks(layout.Content[:slot.Match.Start], fromDir, toDir)
			if err != nil {
				return nil, err
			}
			after, err := RebaseLinks(layout.Content[slot.Match.End:], fromDir, toDir)
			if err != nil {
				return nil, err
			}

			out := doc.Clone()
			out.SetContent(before + removeMarker(doc.Content, tag.Match) + after)
			return out, nil
		},
	}
}

// removeMarker cuts m out of content, taking a line break that follows it
// along when the marker sits on its own line.
func removeMarker(content string, m directive.Match) string {
	end := m.End
	lineStart := strings.LastIndexByte(content[:m.Start], '\n') + 1
	if strings.TrimSpace(content[lineStart:m.Start]) == "" {
		switch {
		case strings.HasPrefix(content[end:], "\r\n"):
			end += 2
		case strings.HasPrefix(content[end:], "\n"):
			end++
		}
	}
	return content[:m.Start] + content[end:]
}
