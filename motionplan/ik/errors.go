package ik

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoSolution matches every NoSolutionError under errors.Is.
var ErrNoSolution = errors.New("kinematics could not solve for position")

// NoSolutionError reports that a solver gave up on a goal. Callers treat it as "no valid pose
// this frame" and carry on.
type NoSolutionError struct {
	Reason      string
	Generations int
	Cause       error
}

func newNoSolutionError(reason string, generations int, cause error) *NoSolutionError {
	return &NoSolutionError{Reason: reason, Generations: generations, Cause: cause}
}

func (e *NoSolutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrNoSolution, e.Reason)
	if e.Generations > 0 {
		msg = fmt.Sprintf("%s after %d generations", msg, e.Generations)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Is makes errors.Is(err, ErrNoSolution) true.
func (e *NoSolutionError) Is(target error) bool {
	return target == ErrNoSolution //nolint:errorlint
}

// Unwrap returns the cause, such as a context deadline.
func (e *NoSolutionError) Unwrap() error {
	return e.Cause
}

// ErrNotSRS is returned by the analytical solver for tables that are not a
// spherical-revolute-spherical 7-DOF arm.
var ErrNotSRS = errors.New("table is not a spherical-revolute-spherical 7-DOF arm")
