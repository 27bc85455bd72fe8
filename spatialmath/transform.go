package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// NewTransform builds a homogeneous transform from a rotation and a translation.
func NewTransform(rotation mgl64.Mat3, translation r3.Vector) mgl64.Mat4 {
	m := rotation.Mat4()
	m.Set(0, 3, translation.X)
	m.Set(1, 3, translation.Y)
	m.Set(2, 3, translation.Z)
	return m
}

// Translation returns the translation column of a homogeneous transform.
func Translation(m mgl64.Mat4) r3.Vector {
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

// TransformPoint applies a homogeneous transform to a point.
func TransformPoint(m mgl64.Mat4, p r3.Vector) r3.Vector {
	v := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// InverseTransform inverts a rigid transform using the transpose of its rotation block, which
// is exact where the general 4x4 inverse accumulates rounding.
func InverseTransform(m mgl64.Mat4) mgl64.Mat4 {
	rt := m.Mat3().Transpose()
	t := rt.Mul3x1(mgl64.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)})
	return NewTransform(rt, r3.Vector{X: -t[0], Y: -t[1], Z: -t[2]})
}

// R3ToVec3 converts between the two vector types used in this package.
func R3ToVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Vec3ToR3 converts between the two vector types used in this package.
func Vec3ToR3(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
