package trainer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidClass is returned for a class index outside [0, NumClasses).
	ErrInvalidClass = errors.New("invalid class")
	// ErrEmptySample is returned for a zero-length embedding.
	ErrEmptySample = errors.New("empty embedding")
)

// TrainError wraps a failure raised while teaching a class.
type TrainError struct {
	Op    string
	Class int
	Err   error
}

func (e *TrainError) Error() string {
	return fmt.Sprintf("%s class %d: %v", e.Op, e.Class, e.Err)
}

func (e *TrainError) Unwrap() error { return e.Err }
