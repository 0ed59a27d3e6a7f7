package engine

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Export renders the cached document for fp and writes it to its mirrored
// output path. It returns false without side effects when fp was never
// processed or its processing failed.
func (e *Engine) Export(fp fingerprint.Footprint) bool {
	ok := e.export(fp)
	e.mu.Lock()
	if ok {
		e.stats.Exported++
	} else {
		e.stats.ExportsFailed++
	}
	e.mu.Unlock()
	e.recorder.IncExportResult(ok)
	return ok
}

func (e *Engine) export(fp fingerprint.Footprint) bool {
	entry, ok := e.cache.Get(fp)
	if !ok {
		e.logger.Warn("Nothing to export, document not processed", logfields.Path(fp.Path), logfields.Hash(fp.Hash))
		return false
	}

	out, err := e.mapper.ToOutput(fp.Path)
	if err != nil {
		e.logger.Error("Cannot map output path", logfields.Path(fp.Path), logfields.Error(err))
		return false
	}

	if err := writeOutput(out, e.renderer.Render(entry.Document.Content)); err != nil {
		e.logger.Error("Export failed", logfields.Path(fp.Path), logfields.Output(out), logfields.Error(err))
		return false
	}

	e.logger.Debug("Exported document", logfields.Path(fp.Path), logfields.Output(out))
	return true
}

// ExportAll exports each footprint and returns the outcomes in input order.
func (e *Engine) ExportAll(fps []fingerprint.Footprint) []bool {
	results := make([]bool, len(fps))
	for i, fp := range fps {
		results[i] = e.Export(fp)
	}
	return results
}

// CopyAsset copies a non-source file from the source tree to its mirrored
// output path.
func (e *Engine) CopyAsset(src string) error {
	dst, err := e.mapper.ToOutput(src)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	e.logger.Debug("Copied asset", logfields.Path(src), logfields.Output(dst))
	return nil
}

// Remove handles a deleted source document: its cache entries are dropped and
// its rendered output is deleted when present. Assets copied on behalf of the
// document stay in place.
func (e *Engine) Remove(path string) error {
	path = filepath.Clean(path)
	if fp, ok := e.cache.Latest(path); ok {
		e.logger.Debug("Dropping cached revision", logfields.Path(path), logfields.Hash(fp.Hash))
	}
	e.cache.Forget(path)
	if e.memo != nil {
		e.memo.Forget(path)
	}
	e.recorder.SetCacheEntries(e.cache.Len())

	if !e.mapper.IsSource(path) {
		return nil
	}
	out, err := e.mapper.ToOutput(path)
	if err != nil {
		return err
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove output file").
			WithContext("path", path).
			WithContext("output", out).
			Build()
	}
	e.logger.Info("Removed output", logfields.Path(path), logfields.Output(out))
	return nil
}

// PrepareOutput empties the output root and mirrors the directory of every
// source path beneath it. Batch runs call it once before processing.
func (e *Engine) PrepareOutput(sources []string) error {
	root := e.mapper.OutputRoot
	if overlaps(root, e.mapper.SourceRoot) {
		return errors.ValidationError("output root must not contain or equal the source root").
			WithContext("output", root).
			WithContext("source", e.mapper.SourceRoot).
			Build()
	}

	if err := emptyDir(root); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "prepare output root").
			WithContext("output", root).
			Build()
	}

	for _, src := range sources {
		out, err := e.mapper.ToOutput(src)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
				WithContext("path", src).
				WithContext("output", out).
				Build()
		}
	}
	return nil
}

// overlaps reports whether outputRoot is sourceRoot or one of its ancestors.
func overlaps(outputRoot, sourceRoot string) bool {
	outAbs, err1 := filepath.Abs(outputRoot)
	srcAbs, err2 := filepath.Abs(sourceRoot)
	if err1 != nil || err2 != nil {
		return false
	}
	if outAbs == srcAbs {
		return true
	}
	rel, err := filepath.Rel(outAbs, srcAbs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
