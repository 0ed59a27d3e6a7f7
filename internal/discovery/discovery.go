// Package discovery finds the source documents beneath a root directory.
package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// SkipMarker is a file name that excludes its directory, and everything
// beneath it, from discovery.
const SkipMarker = ".mdsiteignore"

// Options controls which files Walk returns.
type Options struct {
	// SourceExt is the source document extension, ".md" when empty.
	SourceExt string
	// Ignore holds extra gitignore-style patterns relative to the root.
	Ignore []string
	// SkipPartials leaves out documents whose name starts with "_". They are
	// still available as include and layout targets.
	SkipPartials bool
	// NoGitignore disables reading .gitignore files.
	NoGitignore bool
}

// Walk returns the sorted source document paths beneath root. Hidden files
// and directories are skipped, as are paths matched by .gitignore files in
// the tree or by opts.Ignore.
func Walk(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceRootNotDir, root)
	}

	ext := opts.SourceExt
	if ext == "" {
		ext = ".md"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	matcher, err := newMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")

		if strings.HasPrefix(d.Name(), ".") || matcher.Match(parts, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, err := os.Stat(filepath.Join(path, SkipMarker)); err == nil {
				slog.Debug("Skipping directory with ignore marker", logfields.Path(path))
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || filepath.Ext(path) != ext {
			return nil
		}
		if opts.SkipPartials && IsPartial(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, root, err)
	}

	sort.Strings(files)
	slog.Debug("Source documents discovered", logfields.Path(root), logfields.Count(len(files)))
	return files, nil
}

// IsPartial reports whether path names a partial document (leading "_").
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// Ignored reports whether path, inside root, would be skipped by Walk's
// hidden-file and ignore rules. Watch mode uses it to filter events.
func Ignored(root, path string, opts Options) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return true
		}
	}
	matcher, err := newMatcher(root, opts)
	if err != nil {
		return false
	}
	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()
	return matcher.Match(parts, isDir)
}

func newMatcher(root string, opts Options) (gitignore.Matcher, error) {
	var patterns []gitignore.Pattern
	if !opts.NoGitignore {
		ps, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIgnoreRulesFailed, err)
		}
		patterns = append(patterns, ps...)
	}
	for _, p := range opts.Ignore {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
