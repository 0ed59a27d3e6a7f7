package pipeline

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/markdown"
)

// RebaseLinks rewrites relative link destinations in content written for a
// document in fromDir so they resolve the same way from toDir.
func RebaseLinks(content, fromDir, toDir string) (string, error) {
	if filepath.Clean(fromDir) == filepath.Clean(toDir) {
		return content, nil
	}

	links := markdown.RelativeLinks(content)
	if len(links) == 0 {
		return content, nil
	}

	edits := make([]markdown.Edit, 0, len(links))
	for _, l := range links {
		abs := filepath.Join(fromDir, filepath.FromSlash(l.Target()))
		rel, err := filepath.Rel(toDir, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, "../") {
			rel = "./" + rel
		}
		edits = append(edits, markdown.Edit{Start: l.Start, End: l.End, Replacement: rel + l.Suffix()})
	}
	return markdown.ApplyEdits(content, edits)
}
