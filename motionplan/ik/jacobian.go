package ik

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/spatialmath"
	"go.viam.com/armkin/utils"
)

const (
	// Noise grows by doubling on stagnant generations up to this multiple of its base value.
	maxNoiseGrowth = 16
	// Steps shrink by halving on stagnant generations down to this fraction.
	minStepScale = 1. / 16
)

// JacobianIK is a population based damped least squares solver. Every generation it
// linearizes the arm around the current estimate, derives one step per candidate from a
// perturbed copy of that Jacobian, evaluates the candidates in parallel and keeps the best if
// it improves on the current estimate.
//
// Errors and Jacobian rows are measured in tolerances: a position row is divided by the
// position tolerance and a rotation row, which comes from the rotation vector between the two
// orientations, by the orientation tolerance. Each row also carries the square root of its
// Fitness weight, so the squared norm of the error is the fitness being minimized.
type JacobianIK struct {
	opts   Options
	logger logging.Logger
}

// NewJacobianIK creates a JacobianIK.
func NewJacobianIK(logger logging.Logger, opts Options) (*JacobianIK, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &JacobianIK{opts: opts, logger: logger}, nil
}

// candidate is the private working state of one population member for one generation.
type candidate struct {
	q        []float64
	pose     spatialmath.Pose
	fitness  float64
	singular bool
}

// Solve runs generations until the goal is within tolerance, the generation budget is spent,
// every candidate keeps hitting a singular Jacobian, or ctx is done.
func (ik *JacobianIK) Solve(ctx context.Context, req *Request) (*Solution, error) {
	start := time.Now()
	prob, err := newProblem(req)
	if err != nil {
		return nil, err
	}
	if ik.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ik.opts.Timeout)
		defer cancel()
	}

	n := prob.table.Len()
	q := make([]float64, n)
	for i, v := range prob.seed {
		q[i] = prob.limits[i].Clamp(v)
	}
	pose, err := kinematics.Forward(prob.table, q)
	if err != nil {
		return nil, err
	}
	posTol, rotTol := ik.opts.PositionTolerance, ik.opts.OrientationTolerance
	scales := rowScales(posTol, rotTol)
	metric := NewFitnessMetric(prob.goal, posTol, rotTol)
	best := metric(pose)
	ik.logger.Debugf("starting joint positions: %v", q)
	ik.logger.Debugf("starting pose: %v goal pose: %v", pose, prob.goal)

	pop := ik.opts.PopulationSize
	tables := make([]*kinematics.DHTable, pop)
	rngs := make([]*rand.Rand, pop)
	cands := make([]candidate, pop)
	for i := range tables {
		tables[i] = prob.table.Copy()
		//nolint:gosec
		rngs[i] = rand.New(rand.NewSource(ik.opts.Seed + int64(i)))
		cands[i].q = make([]float64, n)
	}

	growth, stepScale := 1., 1.
	singularStreak := 0

	for gen := 0; ; gen++ {
		delta := spatialmath.PoseError(pose, prob.goal)
		if WithinTolerance(delta, posTol, rotTol) {
			sol := &Solution{
				Configuration: prob.actuatedInputs(q),
				Pose:          pose,
				Score:         best,
				Generations:   gen,
				Elapsed:       time.Since(start),
			}
			ik.logger.Debugw("solved", "generations", gen, "score", best, "elapsed", sol.Elapsed)
			return sol, nil
		}
		if gen == ik.opts.MaxGenerations {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, newNoSolutionError("solve interrupted", gen, err)
		}

		jac := ik.jacobian(prob, q, pose, scales)
		for r := range delta {
			delta[r] *= scales[r]
		}
		errVec := mat.NewVecDense(spatialmath.PoseDim, delta[:])
		// Noise is relative to the typical Jacobian entry.
		noise := ik.opts.NoiseScale * growth * mat.Norm(jac, 2) /
			math.Sqrt(float64(spatialmath.PoseDim*len(prob.actuated)))
		if err := utils.ForEachParallel(pop, func(i int) error {
			return ik.evaluate(prob, &cands[i], tables[i], rngs[i], i, jac, errVec, q, noise, stepScale, metric)
		}); err != nil {
			return nil, newNoSolutionError("candidate evaluation failed", gen+1, err)
		}

		winner := -1
		for i := range cands {
			if cands[i].singular {
				continue
			}
			if winner < 0 || cands[i].fitness < cands[winner].fitness {
				winner = i
			}
		}
		if winner < 0 {
			singularStreak++
			if singularStreak > ik.opts.SingularRetries {
				return nil, newNoSolutionError("jacobian singular for every candidate", gen+1, spatialmath.ErrSingularMatrix)
			}
			growth = math.Min(growth*2, maxNoiseGrowth)
			continue
		}
		singularStreak = 0

		if cands[winner].fitness < best {
			best = cands[winner].fitness
			copy(q, cands[winner].q)
			pose = cands[winner].pose
			growth, stepScale = 1, 1
		} else {
			growth = math.Min(growth*2, maxNoiseGrowth)
			stepScale = math.Max(stepScale/2, minStepScale)
		}
	}

	ik.logger.Debugw("generation budget exhausted", "score", best, "pose", pose)
	return nil, newNoSolutionError("iteration budget exhausted", ik.opts.MaxGenerations, nil)
}

// jacobian estimates the scaled d(error)/d(q) by forward differences at q, whose pose is x.
// Virtual rows get zero columns.
func (ik *JacobianIK) jacobian(
	prob *problem,
	q []float64,
	x spatialmath.Pose,
	scales [spatialmath.PoseDim]float64,
) *mat.Dense {
	jac := mat.NewDense(spatialmath.PoseDim, len(q), nil)
	step := ik.opts.JacobianStep
	table := prob.table
	for _, j := range prob.actuated {
		// Forward over all rows keeps every other theta at q.
		q[j] += step
		perturbed, _ := kinematics.Forward(table, q)
		q[j] -= step
		d := spatialmath.PoseError(x, perturbed)
		for r := 0; r < spatialmath.PoseDim; r++ {
			jac.Set(r, j, d[r]*scales[r]/step)
		}
	}
	return jac
}

// attenuation spreads the population from a full step for candidate 0 down to half a step.
func attenuation(i, size int) float64 {
	return 1 - 0.5*float64(i)/float64(size)
}

// evaluate fills c with candidate i's step from q. It reads the shared Jacobian, error vector
// and q but writes only to its own candidate, table and random source. A singular Jacobian only
// marks the candidate; the returned error is for anything else.
func (ik *JacobianIK) evaluate(
	prob *problem,
	c *candidate,
	table *kinematics.DHTable,
	rng *rand.Rand,
	i int,
	jac *mat.Dense,
	errVec *mat.VecDense,
	q []float64,
	noise float64,
	stepScale float64,
	metric Metric,
) error {
	// A member that fails part way is left marked singular.
	c.singular, c.fitness = true, math.Inf(1)

	var jn mat.Dense
	jn.CloneFrom(jac)
	if i > 0 {
		for _, j := range prob.actuated {
			for r := 0; r < spatialmath.PoseDim; r++ {
				jn.Set(r, j, jn.At(r, j)+rng.NormFloat64()*noise)
			}
		}
	}

	pinv, err := spatialmath.DampedPseudoInverse(&jn, ik.opts.Damping)
	if err != nil {
		return nil
	}

	var dq mat.VecDense
	dq.MulVec(pinv, errVec)
	step := dq.RawVector().Data

	floats.Scale(stepScale*attenuation(i, ik.opts.PopulationSize), step)
	if largest := floats.Norm(step, math.Inf(1)); largest > ik.opts.MaxStep {
		floats.Scale(ik.opts.MaxStep/largest, step)
	}

	for k := range c.q {
		c.q[k] = prob.limits[k].Clamp(q[k] + step[k])
	}
	pose, err := kinematics.Forward(table, c.q)
	if err != nil {
		return err
	}
	if !finitePose(pose) {
		return nil
	}
	c.pose = pose
	c.fitness = metric(pose)
	c.singular = false
	return nil
}

func finitePose(p spatialmath.Pose) bool {
	for _, v := range p.Vector() {
		if !utils.IsFinite(v) {
			return false
		}
	}
	return true
}
