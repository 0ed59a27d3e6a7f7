package pipeline

import (
	"maps"

	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
)

// Document is a source file flowing through the pipeline.
//
// OriginalContent and OriginalHash are set once by NewDocument from the bytes
// read from disk and never change afterwards. Steps only replace Content,
// through SetContent, which keeps ContentHash in sync.
type Document struct {
	Path string

	OriginalContent string
	OriginalHash    string

	Content     string
	ContentHash string

	// FrontMatter holds fields stripped by the frontmatter step.
	FrontMatter map[string]any
}

// NewDocument creates a Document from raw source bytes.
func NewDocument(path string, raw []byte) *Document {
	content := string(raw)
	hash := fingerprint.HashString(content)
	return &Document{
		Path:            path,
		OriginalContent: content,
		OriginalHash:    hash,
		Content:         content,
		ContentHash:     hash,
		FrontMatter:     map[string]any{},
	}
}

// SetContent replaces the processed content and recomputes its hash.
func (d *Document) SetContent(content string) {
	d.Content = content
	d.ContentHash = fingerprint.HashString(content)
}

// Clone returns a copy that can be modified without affecting d.
func (d *Document) Clone() *Document {
	c := *d
	c.FrontMatter = maps.Clone(d.FrontMatter)
	if c.FrontMatter == nil {
		c.FrontMatter = map[string]any{}
	}
	return &c
}

// Footprint is the identity of the source this document was read from.
func (d *Document) Footprint() fingerprint.Footprint {
	return fingerprint.Footprint{Path: d.Path, Hash: d.OriginalHash}
}

// Changed reports whether any step altered the content.
func (d *Document) Changed() bool {
	return d.ContentHash != d.OriginalHash
}
