// Package fingerprint computes content-derived document identities.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// DefaultSourceExt is the recognised markdown source extension.
const DefaultSourceExt = ".md"

// Footprint identifies a document revision. Two footprints are equal iff both
// Path and Hash match, which is exactly Go struct equality, so a Footprint can
// be used directly as a map key.
type Footprint struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

func (f Footprint) String() string {
	short := f.Hash
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s@%s", f.Path, short)
}

// IsZero reports whether f is the zero Footprint.
func (f Footprint) IsZero() bool {
	return f == Footprint{}
}

// Hash returns the lowercase hex SHA-256 digest of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString is Hash for string content.
func HashString(content string) string {
	return Hash([]byte(content))
}

// Computer reads documents from disk and fingerprints them.
type Computer struct {
	SourceExt string
}

// NewComputer returns a Computer for the given source extension; an empty
// extension selects DefaultSourceExt.
func NewComputer(sourceExt string) Computer {
	if sourceExt == "" {
		sourceExt = DefaultSourceExt
	}
	if !strings.HasPrefix(sourceExt, ".") {
		sourceExt = "." + sourceExt
	}
	return Computer{SourceExt: sourceExt}
}

// Compute fingerprints path with the default source extension.
func Compute(path string) (Footprint, error) {
	fp, _, err := NewComputer("").Read(path)
	return fp, err
}

// Compute fingerprints the current on-disk bytes of path.
func (c Computer) Compute(path string) (Footprint, error) {
	fp, _, err := c.Read(path)
	return fp, err
}

// Read returns the footprint together with the bytes it was computed from, so
// callers constructing a document never hash one revision and read another.
func (c Computer) Read(path string) (Footprint, []byte, error) {
	if err := c.Check(path); err != nil {
		return Footprint{}, nil, err
	}
	// #nosec G304 -- path comes from discovery or a directive inside the source tree
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Footprint{}, nil, ferrors.NotFound(path)
		}
		return Footprint{}, nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read document").
			WithContext("path", path).
			Build()
	}
	return Footprint{Path: path, Hash: Hash(content)}, content, nil
}

// Check validates that path is a regular file with the source extension
// without reading it.
func (c Computer) Check(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ferrors.NotFound(path)
	}
	if ext := filepath.Ext(path); ext != c.SourceExt {
		return ferrors.UnsupportedType(path, ext)
	}
	return nil
}
