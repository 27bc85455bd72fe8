package ik

import (
	"math"

	"go.viam.com/armkin/spatialmath"
)

// Weights of the position and orientation terms in Fitness.
const (
	PositionWeight    = 1.0
	OrientationWeight = 0.5
)

// Fitness scores a pose error, lower is better:
//
//	PositionWeight·‖Δpos‖² + OrientationWeight·‖Δrot‖²
func Fitness(delta [spatialmath.PoseDim]float64) float64 {
	pos := delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2]
	rot := delta[3]*delta[3] + delta[4]*delta[4] + delta[5]*delta[5]
	return PositionWeight*pos + OrientationWeight*rot
}

// WithinTolerance is true when the position error of a spatialmath.PoseError is at most posTol
// and its rotation angle at most rotTol.
func WithinTolerance(delta [spatialmath.PoseDim]float64, posTol, rotTol float64) bool {
	pos := math.Sqrt(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
	rot := math.Sqrt(delta[3]*delta[3] + delta[4]*delta[4] + delta[5]*delta[5])
	return pos <= posTol && rot <= rotTol
}

// rowScales returns a factor per pose error row such that the squared norm of the scaled error
// is the Fitness of the error measured in tolerances.
func rowScales(posTol, rotTol float64) [spatialmath.PoseDim]float64 {
	p := math.Sqrt(PositionWeight) / posTol
	r := math.Sqrt(OrientationWeight) / rotTol
	return [spatialmath.PoseDim]float64{p, p, p, r, r, r}
}

// Metric scores a pose against some goal. Lower is better.
type Metric func(spatialmath.Pose) float64

// NewFitnessMetric returns the Fitness of a pose's error to goal, with position measured in
// multiples of posTol and rotation in multiples of rotTol. A pose within tolerance scores at most
// PositionWeight + OrientationWeight.
func NewFitnessMetric(goal spatialmath.Pose, posTol, rotTol float64) Metric {
	scales := rowScales(posTol, rotTol)
	return func(pose spatialmath.Pose) float64 {
		delta := spatialmath.PoseError(pose, goal)
		var sum float64
		for i, d := range delta {
			d *= scales[i]
			sum += d * d
		}
		return sum
	}
}
