package lab

import "errors"

// Sentinel errors. Callers classify with errors.Is.
var (
	// ErrConfig marks a configuration the simulator refuses to run.
	// Raised before the first tick, never during one.
	ErrConfig = errors.New("lab: invalid configuration")

	// ErrInvariant marks a corrupted simulation state: a view over
	// capacity, a duplicate or self entry, or an overlay that disagrees
	// with a view. Always fatal.
	ErrInvariant = errors.New("lab: invariant violation")

	// ErrSinkFatal wraps sink failures that must abort the repetition.
	// Any other sink error is logged and the run continues.
	ErrSinkFatal = errors.New("lab: fatal sink error")
)
