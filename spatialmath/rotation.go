// Package spatialmath defines the vector, transform and orientation primitives used by the
// kinematics core. Points are r3 vectors in millimeters, homogeneous transforms are mgl64 4x4
// matrices and orientations are Euler angles in radians.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/armkin/utils"
)

// When |R[0][2]| exceeds this the pitch is treated as exactly ±π/2.
const gimbalLockThreshold = 1 - 1e-10

// Rotation is an orientation stored as Euler angles in radians. The matrix it stands for is
// R = Rx(X)·Ry(Y)·Rz(Z).
type Rotation struct {
	X float64 `json:"rx"`
	Y float64 `json:"ry"`
	Z float64 `json:"rz"`
}

// NewZeroRotation returns the identity orientation.
func NewZeroRotation() Rotation {
	return Rotation{}
}

// NewRotationFromVector builds a Rotation from an r3 vector of Euler angles.
func NewRotationFromVector(v r3.Vector) Rotation {
	return Rotation{v.X, v.Y, v.Z}
}

// Vector returns the Euler angles as an r3 vector.
func (r Rotation) Vector() r3.Vector {
	return r3.Vector{X: r.X, Y: r.Y, Z: r.Z}
}

// Matrix returns the 3x3 rotation matrix.
func (r Rotation) Matrix() mgl64.Mat3 {
	return mgl64.Rotate3DX(r.X).Mul3(mgl64.Rotate3DY(r.Y)).Mul3(mgl64.Rotate3DZ(r.Z))
}

// Normalize wraps every angle into (-π, π].
func (r Rotation) Normalize() Rotation {
	return Rotation{utils.NormalizeAngle(r.X), utils.NormalizeAngle(r.Y), utils.NormalizeAngle(r.Z)}
}

// Quaternion returns the unit quaternion of the rotation.
func (r Rotation) Quaternion() quat.Number {
	return MatrixToQuat(r.Matrix())
}

// RotationFromMatrix extracts Euler angles from a rotation matrix. At gimbal lock
// (|R[0][2]| ≈ 1) the X and Z rotations share an axis; X is pinned to zero and the
// whole rotation about that axis is reported in Z.
func RotationFromMatrix(m mgl64.Mat3) Rotation {
	r02 := utils.Clamp(m.At(0, 2), -1, 1)
	if math.Abs(r02) > gimbalLockThreshold {
		return Rotation{
			X: 0,
			Y: math.Copysign(math.Pi/2, r02),
			Z: math.Atan2(m.At(1, 0), m.At(1, 1)),
		}
	}
	x := math.Atan2(-m.At(1, 2), m.At(2, 2))
	y := math.Atan2(r02, math.Sqrt(1-r02*r02))
	cx, sx := math.Cos(x), math.Sin(x)
	z := math.Atan2(cx*m.At(1, 0)+sx*m.At(2, 0), cx*m.At(1, 1)+sx*m.At(2, 1))
	return Rotation{x, y, z}
}

// MatrixToQuat converts a rotation matrix to a unit quaternion with a non-negative real part.
func MatrixToQuat(m mgl64.Mat3) quat.Number {
	trace := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	var q quat.Number
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{
			Real: s / 4,
			Imag: (m.At(2, 1) - m.At(1, 2)) / s,
			Jmag: (m.At(0, 2) - m.At(2, 0)) / s,
			Kmag: (m.At(1, 0) - m.At(0, 1)) / s,
		}
	case m.At(0, 0) > m.At(1, 1) && m.At(0, 0) > m.At(2, 2):
		s := 2 * math.Sqrt(1+m.At(0, 0)-m.At(1, 1)-m.At(2, 2))
		q = quat.Number{
			Real: (m.At(2, 1) - m.At(1, 2)) / s,
			Imag: s / 4,
			Jmag: (m.At(0, 1) + m.At(1, 0)) / s,
			Kmag: (m.At(0, 2) + m.At(2, 0)) / s,
		}
	case m.At(1, 1) > m.At(2, 2):
		s := 2 * math.Sqrt(1+m.At(1, 1)-m.At(0, 0)-m.At(2, 2))
		q = quat.Number{
			Real: (m.At(0, 2) - m.At(2, 0)) / s,
			Imag: (m.At(0, 1) + m.At(1, 0)) / s,
			Jmag: s / 4,
			Kmag: (m.At(1, 2) + m.At(2, 1)) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m.At(2, 2)-m.At(0, 0)-m.At(1, 1))
		q = quat.Number{
			Real: (m.At(1, 0) - m.At(0, 1)) / s,
			Imag: (m.At(0, 2) + m.At(2, 0)) / s,
			Jmag: (m.At(1, 2) + m.At(2, 1)) / s,
			Kmag: s / 4,
		}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// RotationVector returns the axis of m scaled by its angle of rotation, which lies in [0, π].
func RotationVector(m mgl64.Mat3) r3.Vector {
	q := MatrixToQuat(m)
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	s := v.Norm()
	if s < 1e-12 {
		return v.Mul(2)
	}
	return v.Mul(2 * math.Atan2(s, q.Real) / s)
}

// OrientationDistance returns the angle in radians of the rotation taking a to b. Unlike a
// difference of Euler angles it is well defined everywhere, including at gimbal lock.
func OrientationDistance(a, b Rotation) float64 {
	rel := quat.Mul(b.Quaternion(), quat.Conj(a.Quaternion()))
	w := math.Min(1, math.Abs(rel.Real)/quat.Abs(rel))
	return 2 * math.Acos(w)
}
