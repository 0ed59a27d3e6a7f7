package pipeline

import (
	"bytes"
	"log/slog"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Only "---" delimited YAML is recognised.
var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// FrontMatter strips a leading YAML front matter block and stores its fields
// on the document. A leading "---" block that is not a YAML mapping is plain
// markdown (a thematic break or setext heading) and is left in place.
func FrontMatter() Step {
	return Step{
		Name:  StepFrontMatter,
		Pure:  true,
		Apply: stripFrontMatter,
	}
}

func stripFrontMatter(doc *Document) (*Document, error) {
	fields := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader([]byte(doc.Content)), &fields, yamlFrontMatter)
	if err != nil {
		slog.Debug("Leading block is not front matter", logfields.Path(doc.Path), logfields.Error(err))
		return doc, nil
	}

	out := doc.Clone()
	for k, v := range fields {
		out.FrontMatter[k] = v
	}
	if len(body) != len(doc.Content) {
		out.SetContent(string(body))
	}
	return out, nil
}
