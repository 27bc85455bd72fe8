package ik

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
	"go.viam.com/armkin/utils"
)

func TestSRSGeometry(t *testing.T) {
	m := sevenAxis(t)
	g, err := newSRSGeometry(m.Table)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.baseHeight, test.ShouldEqual, 50)
	test.That(t, g.upperArm, test.ShouldEqual, 215.6)
	test.That(t, g.forearm, test.ShouldEqual, 213.3)
	test.That(t, g.hand, test.ShouldAlmostEqual, 263.3)
	test.That(t, g.toolTwist, test.ShouldEqual, 0)

	d := []float64{50, 0, 215.6, 0, 213.3, 0, 213.3}
	a := []float64{0, 0, 0, 10, 0, 0, 0}
	alpha := srsAlphas[:]
	offset, err := kinematics.NewDHTable(d, a, alpha, make([]float64, 7), nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = newSRSGeometry(offset)
	test.That(t, errors.Is(err, ErrNotSRS), test.ShouldBeTrue)

	six, err := kinematics.NewDHTable(d[:6], make([]float64, 6), alpha[:6], make([]float64, 6), nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = newSRSGeometry(six)
	test.That(t, errors.Is(err, ErrNotSRS), test.ShouldBeTrue)
}

func TestZYZAngles(t *testing.T) {
	for _, sign := range []float64{1, -1} {
		a, b, c := 0.3*sign, 0.8*sign, -1.1
		m := mgl64Rotation(a, b, c)
		ga, gb, gc := zyzAngles(m, sign, 0)
		test.That(t, ga, test.ShouldAlmostEqual, a)
		test.That(t, gb, test.ShouldAlmostEqual, b)
		test.That(t, gc, test.ShouldAlmostEqual, c)
	}

	// At b = 0 only a+c is defined and a keeps the hint.
	ga, gb, gc := zyzAngles(mgl64Rotation(0.2, 0, 0.5), 1, 0.4)
	test.That(t, ga, test.ShouldEqual, 0.4)
	test.That(t, gb, test.ShouldEqual, 0)
	test.That(t, ga+gc, test.ShouldAlmostEqual, 0.7)
}

func TestArmAngleRoundTrip(t *testing.T) {
	m := sevenAxis(t)
	g, err := newSRSGeometry(m.Table)
	test.That(t, err, test.ShouldBeNil)
	limits := m.ActuatedLimits()

	//nolint:gosec
	rseed := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		q := referenceframe.InputsToFloats(randomInputs(rseed, limits, 0.8))
		// Keep clear of the wrist, elbow and shoulder singularities.
		for _, j := range []int{1, 3, 5} {
			if math.Abs(q[j]) < 0.1 {
				q[j] += 0.2
			}
		}
		goal, err := kinematics.Forward(m.Table.Copy(), q)
		test.That(t, err, test.ShouldBeNil)
		pose, err := newSRSPose(g, goal, q)
		test.That(t, err, test.ShouldBeNil)

		psi := pose.armAngleOf(q)
		got := pose.anglesAt(psi)
		for j := range q {
			test.That(t, utils.AngleDiff(got[j], q[j]), test.ShouldAlmostEqual, 0, 1e-6)
		}
	}
}

func TestAnglesAtReachGoal(t *testing.T) {
	m := sevenAxis(t)
	g, err := newSRSGeometry(m.Table)
	test.That(t, err, test.ShouldBeNil)

	goal := spatialmath.NewPose(r3.Vector{X: 300, Y: -150, Z: 400}, spatialmath.NewRotationFromVector(r3.Vector{X: 0.3, Y: 1.2, Z: -0.4}))
	for _, seed := range [][]float64{
		{0, 1, 0, 1, 0, 1, 0},
		{0, -1, 0, 1, 0, -1, 0},
		{0, 1, 0, -1, 0, 1, 0},
	} {
		pose, err := newSRSPose(g, goal, seed)
		test.That(t, err, test.ShouldBeNil)
		for psi := -3.0; psi <= 3.0; psi += 0.5 {
			q := pose.anglesAt(psi)
			reached, err := kinematics.Forward(m.Table.Copy(), q)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, spatialmath.PoseAlmostEqual(reached, goal, 1e-6, 1e-6), test.ShouldBeTrue)
			test.That(t, branchOf(q), test.ShouldResemble, branchOf(seed))
			test.That(t, pose.armAngleOf(q), test.ShouldAlmostEqual, psi, 1e-6)
		}
	}
}

func TestAnalyticalScenario(t *testing.T) {
	m := sevenAxis(t)
	solver, err := NewAnalyticalIK(logging.NewTestLogger(t), DefaultOptions())
	test.That(t, err, test.ShouldBeNil)

	goal := spatialmath.NewPose(r3.Vector{X: 20, Z: 713.2}, spatialmath.NewZeroRotation())
	req := &Request{Table: m.Table, Limits: m.Limits, Seed: home, Goal: goal}
	sol, err := solver.Solve(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Configuration, test.ShouldHaveLength, 7)
	test.That(t, referenceframe.CheckLimits(sol.Configuration, m.ActuatedLimits()), test.ShouldBeNil)
	test.That(t, sol.Pose.Point.Distance(goal.Point), test.ShouldBeLessThan, 1e-6)

	// Ask for an admissible elbow position and get it back.
	feasible, err := solver.ArmAngleRange(req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, feasible.IsEmpty(), test.ShouldBeFalse)
	want := feasible.Intervals()[0]
	mid := (want.Lo + want.Hi) / 2
	req.ArmAngle = &mid
	sol, err = solver.Solve(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.ArmAngle, test.ShouldAlmostEqual, mid)

	psi, err := solver.ArmAngle(m.Table, sol.Configuration)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, psi, test.ShouldAlmostEqual, mid, 1e-6)
}

func TestAnalyticalFailures(t *testing.T) {
	m := sevenAxis(t)
	solver, err := NewAnalyticalIK(logging.NewTestLogger(t), DefaultOptions())
	test.That(t, err, test.ShouldBeNil)

	_, err = solver.Solve(context.Background(), &Request{
		Table: m.Table,
		Seed:  home,
		Goal:  spatialmath.NewPose(r3.Vector{X: 2000}, spatialmath.NewZeroRotation()),
	})
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = solver.Solve(ctx, &Request{Table: m.Table, Seed: home})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)

	// Every pitch joint pinned far from what the goal needs.
	pinned := m.ActuatedLimits()
	for _, j := range []int{1, 3, 5} {
		pinned[j] = referenceframe.NewJointLimit(-0.01, 0.01)
	}
	goal, err := kinematics.Forward(m.Table.Copy(), []float64{0, 1, 0, 1.2, 0, 0.8, 0})
	test.That(t, err, test.ShouldBeNil)
	_, err = solver.Solve(context.Background(), &Request{Table: m.Table, Limits: pinned, Seed: home, Goal: goal})
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeTrue)

	planar, err := kinematics.NewDHTable([]float64{0, 0}, []float64{100, 100}, []float64{0, 0}, []float64{0, 0}, nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = solver.Solve(context.Background(), &Request{Table: planar, Seed: home[:2]})
	test.That(t, errors.Is(err, ErrNotSRS), test.ShouldBeTrue)
}

func TestNewSolver(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s, err := NewSolver("", logger, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	_, ok := s.(*JacobianIK)
	test.That(t, ok, test.ShouldBeTrue)

	s, err = NewSolver(AnalyticalSolverName, logger, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	_, ok = s.(*AnalyticalIK)
	test.That(t, ok, test.ShouldBeTrue)

	_, err = NewSolver("ccd", logger, DefaultOptions())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown solver")
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts, test.ShouldResemble, DefaultOptions())

	opts, err = DecodeOptions(map[string]interface{}{
		"population_size": 4.0,
		"timeout":         "40ms",
		"damping":         "0.25",
		"seed":            7,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.PopulationSize, test.ShouldEqual, 4)
	test.That(t, opts.Timeout.Milliseconds(), test.ShouldEqual, 40)
	test.That(t, opts.Damping, test.ShouldEqual, 0.25)
	test.That(t, opts.Seed, test.ShouldEqual, 7)
	test.That(t, opts.MaxGenerations, test.ShouldEqual, defaultMaxGenerations)

	_, err = DecodeOptions(map[string]interface{}{"populaton_size": 4})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "populaton_size")

	_, err = DecodeOptions(map[string]interface{}{"max_generations": 0, "max_step_rad": -1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_generations")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_step_rad")
}

func TestFitness(t *testing.T) {
	delta := [spatialmath.PoseDim]float64{3, 4, 0, 0, 0, 2}
	test.That(t, Fitness(delta), test.ShouldEqual, 25+0.5*4)
	test.That(t, WithinTolerance(delta, 5, 2), test.ShouldBeTrue)
	test.That(t, WithinTolerance(delta, 4.9, 2), test.ShouldBeFalse)

	goal := spatialmath.NewPose(r3.Vector{X: 100, Z: 400}, spatialmath.Rotation{Y: 0.3})
	metric := NewFitnessMetric(goal, 0.5, 0.005)
	test.That(t, metric(goal), test.ShouldAlmostEqual, 0, 1e-9)
	// Errors count in tolerances: 1 mm is two, 0.01 rad is two.
	off := spatialmath.NewPose(r3.Vector{X: 101, Z: 400}, spatialmath.Rotation{Y: 0.3})
	test.That(t, metric(off), test.ShouldAlmostEqual, PositionWeight*4, 1e-9)
	off = spatialmath.NewPose(r3.Vector{X: 100, Z: 400}, spatialmath.Rotation{Y: 0.31})
	test.That(t, metric(off), test.ShouldAlmostEqual, OrientationWeight*4, 1e-6)

	err := error(newNoSolutionError("stuck", 12, context.DeadlineExceeded))
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeTrue)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "after 12 generations")
}

func mgl64Rotation(a, b, c float64) mgl64.Mat3 {
	return mgl64.Rotate3DZ(a).Mul3(mgl64.Rotate3DY(b)).Mul3(mgl64.Rotate3DZ(c))
}
