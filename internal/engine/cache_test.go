package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
)

func TestCache_HitRequiresPathAndHash(t *testing.T) {
	c := NewCache()
	fp := fingerprint.Footprint{Path: "a.md", Hash: "h1"}
	c.Put(fp, Entry{Document: pipeline.NewDocument("a.md", []byte("x"))})

	_, ok := c.Get(fp)
	assert.True(t, ok)
	_, ok = c.Get(fingerprint.Footprint{Path: "a.md", Hash: "h2"})
	assert.False(t, ok)
	_, ok = c.Get(fingerprint.Footprint{Path: "b.md", Hash: "h1"})
	assert.False(t, ok)
}

func TestCache_PutReplacesOlderRevisions(t *testing.T) {
	c := NewCache()
	c.Put(fingerprint.Footprint{Path: "a.md", Hash: "h1"}, Entry{})
	c.Put(fingerprint.Footprint{Path: "a.md", Hash: "h2"}, Entry{})
	c.Put(fingerprint.Footprint{Path: "b.md", Hash: "h1"}, Entry{})

	assert.Equal(t, 2, c.Len())
	latest, ok := c.Latest("a.md")
	assert.True(t, ok)
	assert.Equal(t, "h2", latest.Hash)

	assert.Equal(t, 1, c.Forget("a.md"))
	assert.Equal(t, 1, c.Len())
}

func TestCache_DependentsAreTransitive(t *testing.T) {
	c := NewCache()
	part := fingerprint.Footprint{Path: "_part.md", Hash: "p"}
	layout := fingerprint.Footprint{Path: "_layout.md", Hash: "l"}
	c.Put(layout, Entry{Deps: []fingerprint.Footprint{part}})
	c.Put(fingerprint.Footprint{Path: "page.md", Hash: "x"}, Entry{Deps: []fingerprint.Footprint{layout}})
	c.Put(fingerprint.Footprint{Path: "other.md", Hash: "y"}, Entry{})

	assert.Equal(t, []string{"_layout.md", "page.md"}, c.Dependents("_part.md"))
	assert.Empty(t, c.Dependents("other.md"))
}
