// Package kinematics models a serial arm as a table of modified Denavit-Hartenberg parameters
// and evaluates its forward kinematics.
package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"go.viam.com/armkin/referenceframe"
)

var (
	// ErrMismatchedDHParams is returned when the DH parameter arrays differ in length.
	ErrMismatchedDHParams = errors.New("DH parameter arrays must all have the same length")
	// ErrEmptyDHTable is returned for a table without rows.
	ErrEmptyDHTable = errors.New("DH table must have at least one row")
)

// DHTable is an ordered chain of joints, each described by (d, a, alpha, theta). Only theta,
// the joint angle, changes after construction. Virtual rows are part of the chain but are
// never actuated; solvers leave their theta alone.
//
// A DHTable is not safe for concurrent use. Solvers work on a Copy.
type DHTable struct {
	d       []float64
	a       []float64
	alpha   []float64
	theta   []float64
	virtual []bool

	cache *transformCache
}

// NewDHTable creates a table from per-row parameters. virtual may be nil when no row is
// virtual.
func NewDHTable(d, a, alpha, theta []float64, virtual []bool) (*DHTable, error) {
	n := len(d)
	if n == 0 {
		return nil, ErrEmptyDHTable
	}
	if len(a) != n || len(alpha) != n || len(theta) != n || (virtual != nil && len(virtual) != n) {
		return nil, errors.Wrapf(ErrMismatchedDHParams, "d=%d a=%d alpha=%d theta=%d virtual=%d",
			len(d), len(a), len(alpha), len(theta), len(virtual))
	}
	if virtual == nil {
		virtual = make([]bool, n)
	}
	return &DHTable{
		d:       append([]float64(nil), d...),
		a:       append([]float64(nil), a...),
		alpha:   append([]float64(nil), alpha...),
		theta:   append([]float64(nil), theta...),
		virtual: append([]bool(nil), virtual...),
		cache:   newTransformCache(),
	}, nil
}

// Copy returns a deep copy with an empty transform cache.
func (t *DHTable) Copy() *DHTable {
	return &DHTable{
		d:       append([]float64(nil), t.d...),
		a:       append([]float64(nil), t.a...),
		alpha:   append([]float64(nil), t.alpha...),
		theta:   append([]float64(nil), t.theta...),
		virtual: append([]bool(nil), t.virtual...),
		cache:   newTransformCache(),
	}
}

// Len is the number of rows, virtual ones included.
func (t *DHTable) Len() int {
	return len(t.d)
}

// NumActuated is the number of non-virtual rows.
func (t *DHTable) NumActuated() int {
	n := 0
	for _, v := range t.virtual {
		if !v {
			n++
		}
	}
	return n
}

// IsVirtual reports whether row i is virtual.
func (t *DHTable) IsVirtual(i int) bool {
	return t.virtual[i]
}

// ActuatedIndices returns the row index of every non-virtual joint, in order.
func (t *DHTable) ActuatedIndices() []int {
	idx := make([]int, 0, len(t.virtual))
	for i, v := range t.virtual {
		if !v {
			idx = append(idx, i)
		}
	}
	return idx
}

// Params returns the DH parameters of row i.
func (t *DHTable) Params(i int) (d, a, alpha, theta float64) {
	return t.d[i], t.a[i], t.alpha[i], t.theta[i]
}

// Theta returns the joint angle of row i.
func (t *DHTable) Theta(i int) float64 {
	return t.theta[i]
}

// Thetas returns a copy of every joint angle, virtual rows included.
func (t *DHTable) Thetas() []float64 {
	return append([]float64(nil), t.theta...)
}

// ActuatedThetas returns the joint angles of the non-virtual rows.
func (t *DHTable) ActuatedThetas() []float64 {
	out := make([]float64, 0, len(t.theta))
	for i, v := range t.virtual {
		if !v {
			out = append(out, t.theta[i])
		}
	}
	return out
}

// SetTheta sets the joint angle of row i. No limits are checked here.
func (t *DHTable) SetTheta(i int, value float64) {
	if t.theta[i] == value {
		return
	}
	t.theta[i] = value
	t.cache.invalidate()
}

// SetThetas sets every joint angle, virtual rows included.
func (t *DHTable) SetThetas(values []float64) error {
	if len(values) != len(t.theta) {
		return referenceframe.NewIncorrectDoFError(len(values), len(t.theta))
	}
	for i, v := range values {
		t.SetTheta(i, v)
	}
	return nil
}

// SetActuatedThetas sets the joint angles of the non-virtual rows, in order.
func (t *DHTable) SetActuatedThetas(values []float64) error {
	if n := t.NumActuated(); len(values) != n {
		return referenceframe.NewIncorrectDoFError(len(values), n)
	}
	k := 0
	for i, v := range t.virtual {
		if v {
			continue
		}
		t.SetTheta(i, values[k])
		k++
	}
	return nil
}

// TransformMatrix returns the transform of row i relative to row i-1:
//
//	RotX(alpha) · TransX(a) · RotZ(theta) · TransZ(d)
func (t *DHTable) TransformMatrix(i int) mgl64.Mat4 {
	st, ct := math.Sincos(t.theta[i])
	sa, ca := math.Sincos(t.alpha[i])
	d, a := t.d[i], t.a[i]
	return mgl64.Mat4FromRows(
		mgl64.Vec4{ct, -st, 0, a},
		mgl64.Vec4{ca * st, ca * ct, -sa, -d * sa},
		mgl64.Vec4{sa * st, sa * ct, ca, d * ca},
		mgl64.Vec4{0, 0, 0, 1},
	)
}

// TransformBetween composes the transforms of rows from through to, inclusive, in index
// order. Every prefix computed on the way is cached until a theta changes.
func (t *DHTable) TransformBetween(from, to int) (mgl64.Mat4, error) {
	if from < 0 || to >= len(t.theta) || from > to {
		return mgl64.Mat4{}, errors.Errorf("invalid joint range [%d, %d] for a table of %d rows", from, to, len(t.theta))
	}
	if m, ok := t.cache.get(from, to); ok {
		return m, nil
	}
	// Resume from the longest cached prefix.
	k := to - 1
	m := mgl64.Ident4()
	for ; k >= from; k-- {
		if cached, ok := t.cache.get(from, k); ok {
			m = cached
			break
		}
	}
	for i := k + 1; i <= to; i++ {
		m = m.Mul4(t.TransformMatrix(i))
		t.cache.put(from, i, m)
	}
	return m, nil
}

// EndTransform is the transform of the last row relative to the base.
func (t *DHTable) EndTransform() mgl64.Mat4 {
	m, _ := t.TransformBetween(0, len(t.theta)-1)
	return m
}
