// Package ik solves inverse kinematics for DH-table arms. JacobianIK is the general numeric
// solver; AnalyticalIK solves spherical-revolute-spherical 7-DOF arms in closed form.
package ik

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
)

// Solver names accepted by NewSolver.
const (
	JacobianSolverName   = "jacobian"
	AnalyticalSolverName = "analytical"
)

// Solver finds joint angles that put an arm's end effector at a goal pose. Implementations
// never modify the request's table.
type Solver interface {
	Solve(ctx context.Context, req *Request) (*Solution, error)
}

// NewSolver creates the solver registered under name.
func NewSolver(name string, logger logging.Logger, opts Options) (Solver, error) {
	switch name {
	case JacobianSolverName, "":
		return NewJacobianIK(logger, opts)
	case AnalyticalSolverName:
		return NewAnalyticalIK(logger, opts)
	default:
		return nil, errors.Errorf("unknown solver %q, supported solvers are %s and %s",
			name, JacobianSolverName, AnalyticalSolverName)
	}
}

// Request is one inverse kinematics problem.
type Request struct {
	Table *kinematics.DHTable
	// Limits holds one limit per table row or one per actuated joint. Nil means every actuated
	// joint is unbounded.
	Limits []referenceframe.JointLimit
	// Seed holds one input per actuated joint and is where the search starts.
	Seed []referenceframe.Input
	Goal spatialmath.Pose
	// ArmAngle optionally asks for a particular elbow position. Only AnalyticalIK uses it.
	ArmAngle *float64
}

// Solution is a configuration reaching the goal.
type Solution struct {
	// Configuration holds one input per actuated joint.
	Configuration []referenceframe.Input
	Pose          spatialmath.Pose
	Score         float64
	Generations   int
	ArmAngle      float64
	Elapsed       time.Duration
}

// problem is a validated Request with per-row limits and a per-row seed.
type problem struct {
	table    *kinematics.DHTable
	limits   []referenceframe.JointLimit
	seed     []float64
	actuated []int
	goal     spatialmath.Pose
}

func newProblem(req *Request) (*problem, error) {
	if req == nil || req.Table == nil {
		return nil, errors.New("inverse kinematics request has no DH table")
	}
	table := req.Table.Copy()
	n, actuated := table.Len(), table.ActuatedIndices()

	limits := make([]referenceframe.JointLimit, n)
	switch len(req.Limits) {
	case 0:
		for i := range limits {
			limits[i] = referenceframe.NewUnboundedJointLimit()
		}
	case n:
		copy(limits, req.Limits)
	case len(actuated):
		for k, i := range actuated {
			limits[i] = req.Limits[k]
		}
	default:
		return nil, errors.Wrap(referenceframe.NewIncorrectDoFError(len(req.Limits), len(actuated)), "limits")
	}
	for i := 0; i < n; i++ {
		if table.IsVirtual(i) {
			limits[i] = referenceframe.NewFixedJointLimit(table.Theta(i))
		}
	}

	if len(req.Seed) != len(actuated) {
		return nil, errors.Wrap(referenceframe.NewIncorrectDoFError(len(req.Seed), len(actuated)), "seed")
	}
	seed := table.Thetas()
	for k, i := range actuated {
		seed[i] = req.Seed[k].Value
	}
	return &problem{table: table, limits: limits, seed: seed, actuated: actuated, goal: req.Goal}, nil
}

// actuatedInputs picks the actuated rows out of a per-row vector.
func (p *problem) actuatedInputs(q []float64) []referenceframe.Input {
	out := make([]referenceframe.Input, len(p.actuated))
	for k, i := range p.actuated {
		out[k] = referenceframe.Input{Value: q[i]}
	}
	return out
}

func (p *problem) actuatedLimits() []referenceframe.JointLimit {
	out := make([]referenceframe.JointLimit, len(p.actuated))
	for k, i := range p.actuated {
		out[k] = p.limits[i]
	}
	return out
}
