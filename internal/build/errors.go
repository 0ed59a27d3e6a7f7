package build

import "errors"

var (
	// ErrDiscovery wraps failures to enumerate the source tree.
	ErrDiscovery = errors.New("discovery failed")
	// ErrPrepareOutput wraps failures to reset the output tree.
	ErrPrepareOutput = errors.New("prepare output failed")
)
