package spatialmath

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// PoseDim is the length of a pose vector: x, y, z, rotX, rotY, rotZ.
const PoseDim = 6

// Pose is an end-effector position in millimeters plus an Euler orientation in radians.
type Pose struct {
	Point       r3.Vector `json:"point"`
	Orientation Rotation  `json:"orientation"`
}

// NewPose creates a pose from a point and an orientation.
func NewPose(point r3.Vector, orientation Rotation) Pose {
	return Pose{Point: point, Orientation: orientation}
}

// NewZeroPose returns the pose at the origin with no rotation.
func NewZeroPose() Pose {
	return Pose{}
}

// NewPoseFromVector reads [x, y, z, rotX, rotY, rotZ].
func NewPoseFromVector(v [PoseDim]float64) Pose {
	return Pose{
		Point:       r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Orientation: Rotation{v[3], v[4], v[5]},
	}
}

// NewPoseFromMatrix extracts the translation and Euler orientation of a homogeneous transform.
func NewPoseFromMatrix(m mgl64.Mat4) Pose {
	return Pose{
		Point:       Translation(m),
		Orientation: RotationFromMatrix(m.Mat3()),
	}
}

// Vector returns [x, y, z, rotX, rotY, rotZ].
func (p Pose) Vector() [PoseDim]float64 {
	return [PoseDim]float64{
		p.Point.X, p.Point.Y, p.Point.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z,
	}
}

// Matrix returns the homogeneous transform of the pose.
func (p Pose) Matrix() mgl64.Mat4 {
	return NewTransform(p.Orientation.Matrix(), p.Point)
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f RX:%.4f RY:%.4f RZ:%.4f}",
		p.Point.X, p.Point.Y, p.Point.Z, p.Orientation.X, p.Orientation.Y, p.Orientation.Z)
}

// PoseError returns the error taking from to to: the position difference followed by the
// rotation vector of to·from⁻¹. The rotation vector's norm is the geodesic angle between the two
// orientations, so unlike a difference of Euler angles it is continuous at gimbal lock.
func PoseError(from, to Pose) [PoseDim]float64 {
	rot := RotationVector(to.Orientation.Matrix().Mul3(from.Orientation.Matrix().Transpose()))
	return [PoseDim]float64{
		to.Point.X - from.Point.X,
		to.Point.Y - from.Point.Y,
		to.Point.Z - from.Point.Z,
		rot.X, rot.Y, rot.Z,
	}
}

// PoseAlmostEqual is true when the poses are within posTol millimeters and rotTol radians
// (geodesic) of each other.
func PoseAlmostEqual(a, b Pose, posTol, rotTol float64) bool {
	return a.Point.Distance(b.Point) <= posTol && OrientationDistance(a.Orientation, b.Orientation) <= rotTol
}
