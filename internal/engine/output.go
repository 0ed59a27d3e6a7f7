package engine

import (
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// ensureFile creates the parent directories of path and an empty placeholder
// file when none exists yet.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", path).
			Build()
	}
	// #nosec G304 -- path is derived from the configured output root
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output file").
			WithContext("path", path).
			Build()
	}
	return f.Close()
}

// writeOutput overwrites path with content.
func writeOutput(path, content string) error {
	if err := ensureFile(path); err != nil {
		return err
	}
	// #nosec G306 -- rendered pages are meant to be world readable
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").
			WithContext("path", path).
			Build()
	}
	return nil
}

// copyFile copies src verbatim to dst.
func copyFile(src, dst string) error {
	if err := ensureFile(dst); err != nil {
		return err
	}
	// #nosec G304 -- src was resolved inside the source root
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "open asset").
			WithContext("path", src).
			Build()
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 -- dst is derived from the configured output root
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "open asset destination").
			WithContext("path", dst).
			Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "copy asset").
			WithContext("path", src).
			WithContext("output", dst).
			Build()
	}
	return out.Close()
}

// emptyDir makes root an existing, empty directory.
func emptyDir(root string) error {
	entries, err := os.ReadDir(root)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(root, 0o750)
	case err != nil:
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
