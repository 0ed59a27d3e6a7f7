// Package build runs batch builds.
//
// A run discovers the source documents, resets the output tree, processes
// every document through the engine and exports the ones that succeeded.
// One failing document never aborts the run: its error is recorded in the
// Result at the document's index and the run status degrades to partial.
package build
