package spatialmath

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularMatrix is returned when a matrix has no usable inverse.
var ErrSingularMatrix = errors.New("matrix is singular")

// Singular values below this fraction of the largest one are dropped by an undamped
// pseudo-inverse.
const pinvRcond = 1e-12

// Largest singular values below this are treated as a zero matrix.
const singularThreshold = 1e-12

// DampedPseudoInverse returns the damped least squares inverse of j,
//
//	J⁺ = V·diag(σᵢ/(σᵢ²+λ²))·Uᵀ
//
// With a damping of zero this is the Moore-Penrose pseudo-inverse. ErrSingularMatrix is
// returned when the factorization fails or j carries no information.
func DampedPseudoInverse(j mat.Matrix, damping float64) (*mat.Dense, error) {
	if !finiteMatrix(j) {
		return nil, errors.Wrap(ErrSingularMatrix, "matrix is not finite")
	}
	var svd mat.SVD
	if ok := svd.Factorize(j, mat.SVDThin); !ok {
		return nil, errors.Wrap(ErrSingularMatrix, "svd factorization failed")
	}
	values := svd.Values(nil)
	if len(values) == 0 || !(values[0] > singularThreshold) {
		return nil, ErrSingularMatrix
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	lambda2 := damping * damping
	inv := make([]float64, len(values))
	for i, s := range values {
		switch {
		case lambda2 > 0:
			inv[i] = s / (s*s + lambda2)
		case s > pinvRcond*values[0]:
			inv[i] = 1 / s
		}
	}

	// V·Σ⁺ scales the columns of V.
	rows, _ := v.Dims()
	for c, scale := range inv {
		for r := 0; r < rows; r++ {
			v.Set(r, c, v.At(r, c)*scale)
		}
	}
	var pinv mat.Dense
	pinv.Mul(&v, u.T())

	if !finiteMatrix(&pinv) {
		return nil, errors.Wrap(ErrSingularMatrix, "pseudo-inverse is not finite")
	}
	return &pinv, nil
}

func finiteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			if x := m.At(i, k); math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}
