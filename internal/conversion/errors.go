package conversion

import "errors"

var (
	// ErrZeroDivisor indicates a distribution was requested with a zero divisor
	// while there is something to distribute.
	ErrZeroDivisor = errors.New("conversion: divisor must be positive")

	// ErrDuplicateHolder indicates the snapshot lists a principal twice.
	ErrDuplicateHolder = errors.New("conversion: duplicate principal in snapshot")
)
