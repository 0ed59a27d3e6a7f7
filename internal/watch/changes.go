package watch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind is the coalesced effect of one or more filesystem events.
type ChangeKind int

const (
	Changed ChangeKind = iota
	Removed
)

func (k ChangeKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "changed"
}

// Change is a pending change for one path.
type Change struct {
	Path string
	Kind ChangeKind
}

// pending coalesces events per path; the latest event wins.
type pending map[string]ChangeKind

func (p pending) add(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	switch {
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		p[path] = Removed
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		p[path] = Changed
	}
}

// drain returns the changes sorted by path and resets p.
func (p pending) drain() []Change {
	out := make([]Change, 0, len(p))
	for path, kind := range p {
		out = append(out, Change{Path: path, Kind: kind})
		delete(p, path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// opName labels an event for metrics.
func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return "chmod"
	}
}

// isNoise reports editor swap files and OS litter.
func isNoise(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"),
		base == "Thumbs.db", base == "4913":
		return true
	}
	return false
}
