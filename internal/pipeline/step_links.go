package pipeline

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/mdsite/internal/directive"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
	"git.home.luguber.info/inful/mdsite/internal/paths"
)

// LinkRewrite rewrites relative links to source documents so they point at
// the rendered output (./other.md becomes ./other.html, fragments kept).
// Any other relative target that exists inside the source tree is copied to
// its mirrored output location so the unchanged link still resolves.
// Missing targets and targets outside the source root are left alone.
//
// It must be the last step of a pipeline.
func LinkRewrite(mapper paths.Mapper, copier AssetCopier) Step {
	return Step{
		Name: StepLinks,
		Apply: func(doc *Document) (*Document, error) {
			links := markdown.RelativeLinks(doc.Content)
			if len(links) == 0 {
				return doc, nil
			}

			edits := make([]markdown.Edit, 0, len(links))
			for _, l := range links {
				target := l.Target()
				if mapper.IsSource(target) {
					edits = append(edits, markdown.Edit{
						Start:       l.Start,
						End:         l.End,
						Replacement: mapper.SwapExt(target) + l.Suffix(),
					})
					continue
				}

				if copier == nil {
					continue
				}
				asset := directive.ResolveTarget(doc.Path, target)
				if !mapper.Contains(asset) {
					slog.Debug("Link target outside source root", logfields.Path(doc.Path), slog.String("target", target))
					continue
				}
				info, err := os.Stat(asset)
				if err != nil || !info.Mode().IsRegular() {
					continue
				}
				if err := copier.CopyAsset(asset); err != nil {
					return nil, err
				}
			}

			if len(edits) == 0 {
				return doc, nil
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
