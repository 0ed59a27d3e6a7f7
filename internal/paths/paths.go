// Package paths maps source document paths to their mirrored locations in
// the output tree.
package paths

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// Mapper mirrors paths from SourceRoot into OutputRoot, swapping SourceExt for
// OutputExt. Other extensions are preserved.
type Mapper struct {
	SourceRoot string
	OutputRoot string
	SourceExt  string
	OutputExt  string
}

// NewMapper returns a Mapper with cleaned roots and dot-prefixed extensions.
func NewMapper(sourceRoot, outputRoot, sourceExt, outputExt string) Mapper {
	return Mapper{
		SourceRoot: filepath.Clean(sourceRoot),
		OutputRoot: filepath.Clean(outputRoot),
		SourceExt:  dotted(sourceExt),
		OutputExt:  dotted(outputExt),
	}
}

// Rel returns src relative to the source root. It fails when src lies outside it.
func (m Mapper) Rel(src string) (string, error) {
	rel, err := filepath.Rel(m.SourceRoot, filepath.Clean(src))
	if err != nil {
		return "", errors.ValidationError("path is not under the source root").
			WithCause(err).
			WithContext("path", src).
			Build()
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ValidationError("path escapes the source root").
			WithContext("path", src).
			WithContext("source_root", m.SourceRoot).
			Build()
	}
	return rel, nil
}

// Contains reports whether src lies inside the source root.
func (m Mapper) Contains(src string) bool {
	_, err := m.Rel(src)
	return err == nil
}

// ToOutput returns the output path for src.
func (m Mapper) ToOutput(src string) (string, error) {
	rel, err := m.Rel(src)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.OutputRoot, m.SwapExt(rel)), nil
}

// SwapExt replaces a trailing source extension with the output extension.
// Works on relative link targets as well as filesystem paths.
func (m Mapper) SwapExt(p string) string {
	if m.IsSource(p) {
		return strings.TrimSuffix(p, filepath.Ext(p)) + m.OutputExt
	}
	return p
}

// IsSource reports whether p has the source extension. The match is exact,
// like discovery and fingerprinting: "x.MD" is an asset when SourceExt is ".md".
func (m Mapper) IsSource(p string) bool {
	return filepath.Ext(p) == m.SourceExt
}

func dotted(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
