// Package errors provides the classified error type used across mdsite.
//
// A ClassifiedError carries a category, a severity, a retry strategy and
// structured context. Document-level failures (not_found, unsupported, cycle,
// layout) are produced by the core packages and handled one document at a
// time by the engine; the remaining categories surface at the CLI, where
// CLIErrorAdapter turns them into exit codes.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryFileSystem, "write output").
//		WithContext("path", outPath).
//		WithCause(ioErr).
//		Build()
package errors
