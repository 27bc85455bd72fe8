package referenceframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// OOBErrString is a string that all out of bounds errors contain, so that they can be told
// apart from other errors by message alone.
const OOBErrString = "angle out of bounds"

// AngleOutOfBoundsError is returned when a caller asks for a joint angle its limit rejects.
type AngleOutOfBoundsError struct {
	Joint int
	Angle float64
	Limit JointLimit
}

func (e *AngleOutOfBoundsError) Error() string {
	return fmt.Sprintf("joint %d: %.5f %s %v", e.Joint, e.Angle, OOBErrString, e.Limit)
}

// NewAngleOutOfBoundsError returns an AngleOutOfBoundsError for the given joint.
func NewAngleOutOfBoundsError(joint int, angle float64, limit JointLimit) error {
	return &AngleOutOfBoundsError{Joint: joint, Angle: angle, Limit: limit}
}

// NewIncorrectDoFError is returned when the number of inputs does not match the number of
// joints they are meant for.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match degrees of freedom. Expected %d, got %d", expected, actual)
}

// NewParentFrameMissingError returns an error indicating that a frame's parent does not exist.
func NewParentFrameMissingError(parent int) error {
	return errors.Errorf("parent frame %d does not exist", parent)
}
