package discovery

import "errors"

var (
	// ErrSourceRootNotFound indicates the configured source directory does not exist.
	ErrSourceRootNotFound = errors.New("source root not found")

	// ErrSourceRootNotDir indicates the configured source path is not a directory.
	ErrSourceRootNotDir = errors.New("source root is not a directory")

	// ErrWalkFailed indicates filesystem traversal of the source tree failed.
	ErrWalkFailed = errors.New("source directory walk failed")

	// ErrIgnoreRulesFailed indicates .gitignore files could not be read.
	ErrIgnoreRulesFailed = errors.New("reading ignore rules failed")
)
