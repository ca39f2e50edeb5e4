package remotemem

import "errors"

var (
	// ErrLineSize is returned by New when the configured line size is not
	// a power of two.
	ErrLineSize = errors.New("remotemem: linebytes must be a power of two")

	// ErrNoSets is returned by New when the configured slot count is not
	// positive.
	ErrNoSets = errors.New("remotemem: sets must be positive")
)
