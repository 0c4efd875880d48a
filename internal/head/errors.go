package head

import "errors"

var (
	// ErrHeadNotReady is returned when a head fails the usability check.
	ErrHeadNotReady = errors.New("head not ready")
	// ErrUnknownKind is returned for a head type other than centroid or linear.
	ErrUnknownKind = errors.New("unknown head type")
)

// HeadError explains why a head was rejected. It matches ErrHeadNotReady.
type HeadError struct {
	Reason string
}

func (e *HeadError) Error() string {
	return "head not ready: " + e.Reason
}

// Is reports whether target is ErrHeadNotReady.
func (e *HeadError) Is(target error) bool {
	return target == ErrHeadNotReady
}
