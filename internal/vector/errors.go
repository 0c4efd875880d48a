package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched by every *DimensionMismatchError via errors.Is.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionMismatchError indicates a vector whose length differs from the
// dimension already established for a trainer, accumulator, or head.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
