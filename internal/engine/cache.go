package engine

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
)

// Entry is a fully processed document together with the footprints of the
// documents its pipeline run resolved (includes, layouts).
type Entry struct {
	Document *pipeline.Document
	Deps     []fingerprint.Footprint
}

// Cache maps a source footprint to its processed result. Lookups match on
// path and hash; an entry for the same path with another hash is a miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[fingerprint.Footprint]Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[fingerprint.Footprint]Entry)}
}

func (c *Cache) Get(fp fingerprint.Footprint) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fp]
	return e, ok
}

// Put stores entry under fp, replacing older revisions of the same path.
func (c *Cache) Put(fp fingerprint.Footprint, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Path == fp.Path && k.Hash != fp.Hash {
			delete(c.entries, k)
		}
	}
	c.entries[fp] = entry
}

// Forget drops every entry for path and returns how many were removed.
func (c *Cache) Forget(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.Path == path {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Latest returns the cached footprint for path, if any.
func (c *Cache) Latest(path string) (fingerprint.Footprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k := range c.entries {
		if k.Path == path {
			return k, true
		}
	}
	return fingerprint.Footprint{}, false
}

// Dependents returns the paths of cached documents that resolved path,
// directly or through other documents, sorted.
func (c *Cache) Dependents(path string) []string {
	c.mu.RLock()
	reverse := make(map[string][]string)
	for fp, e := range c.entries {
		for _, dep := range e.Deps {
			reverse[dep.Path] = append(reverse[dep.Path], fp.Path)
		}
	}
	c.mu.RUnlock()

	seen := map[string]struct{}{path: {}}
	queue := []string{path}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[cur] {
			if _, ok := seen[dependent]; ok {
				continue
			}
			seen[dependent] = struct{}{}
			out = append(out, dependent)
			queue = append(queue, dependent)
		}
	}
	sort.Strings(out)
	return out
}
