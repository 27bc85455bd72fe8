// Package arm holds the canonical joint state of a kinematic arm. Every write goes through
// Arm under its lock; readers take a consistent Snapshot.
package arm

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/motionplan/ik"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
)

// DefaultRequestInterval is the minimum spacing of manual pose requests.
const DefaultRequestInterval = 100 * time.Millisecond

// ErrRequestThrottled is returned by MoveToPosition when requests arrive faster than the
// configured interval.
var ErrRequestThrottled = errors.New("manual pose request throttled")

// Config is used to build an Arm.
type Config struct {
	// Solver names the inverse kinematics solver, see ik.NewSolver.
	Solver        string
	SolverOptions ik.Options
	// RequestInterval spaces MoveToPosition calls; zero means DefaultRequestInterval.
	RequestInterval time.Duration
	// Joints overrides the joint variants, one per actuated joint. Nil means simulated joints
	// resting at zero.
	Joints []Joint
}

// Arm is a kinematic model plus the joints that move it.
type Arm struct {
	name    string
	model   *kinematics.Model
	limits  []referenceframe.JointLimit
	solver  ik.Solver
	limiter *rate.Limiter
	logger  logging.Logger

	mu     sync.RWMutex
	joints []Joint
}

// Snapshot is a consistent view of the arm at one instant.
type Snapshot struct {
	Joints  []referenceframe.Input
	Targets []referenceframe.Input
	End     spatialmath.Pose
	// Frames holds the origin of every table row, virtual rows included.
	Frames []spatialmath.Pose
	Taken  time.Time
}

// NewArm creates an arm for model. The model is copied.
func NewArm(model *kinematics.Model, conf Config, logger logging.Logger) (*Arm, error) {
	if model == nil {
		return nil, kinematics.ErrNoModelInformation
	}
	model = model.Copy()
	limits := model.ActuatedLimits()

	joints := conf.Joints
	if joints == nil {
		joints = make([]Joint, len(limits))
		for i := range joints {
			joints[i] = NewSimulatedJoint(0)
		}
	}
	if len(joints) != len(limits) {
		return nil, errors.Wrap(referenceframe.NewIncorrectDoFError(len(joints), len(limits)), "joints")
	}

	opts := conf.SolverOptions
	if opts == (ik.Options{}) {
		opts = ik.DefaultOptions()
	}
	solver, err := ik.NewSolver(conf.Solver, logger.Sublogger("ik"), opts)
	if err != nil {
		return nil, err
	}

	interval := conf.RequestInterval
	if interval <= 0 {
		interval = DefaultRequestInterval
	}
	return &Arm{
		name:    model.Name,
		model:   model,
		limits:  limits,
		solver:  solver,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
		joints:  joints,
	}, nil
}

// Name returns the model name.
func (a *Arm) Name() string {
	return a.name
}

// Limits returns one limit per actuated joint.
func (a *Arm) Limits() []referenceframe.JointLimit {
	return append([]referenceframe.JointLimit(nil), a.limits...)
}

// Model returns a copy of the kinematic model.
func (a *Arm) Model() *kinematics.Model {
	return a.model.Copy()
}

// JointPositions returns the current joint angles.
func (a *Arm) JointPositions(ctx context.Context) ([]referenceframe.Input, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.angles(), nil
}

// EndPosition returns the end effector pose at the current joint angles.
func (a *Arm) EndPosition(ctx context.Context) (spatialmath.Pose, error) {
	a.mu.RLock()
	inputs := a.angles()
	a.mu.RUnlock()
	return kinematics.ForwardInputs(a.model.Table.Copy(), inputs)
}

// SetJointAngle commands one joint, in radians.
func (a *Arm) SetJointAngle(ctx context.Context, joint int, angle float64) error {
	if joint < 0 || joint >= len(a.limits) {
		return errors.Errorf("joint %d does not exist, arm has %d joints", joint, len(a.limits))
	}
	if a.limits[joint].IsOutOfBounds(angle) {
		return referenceframe.NewAngleOutOfBoundsError(joint, angle, a.limits[joint])
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.joints[joint].SetTarget(angle)
	return nil
}

// MoveToJointPositions commands every joint at once. Nothing moves unless all angles are
// within their limits.
func (a *Arm) MoveToJointPositions(ctx context.Context, inputs []referenceframe.Input) error {
	if err := referenceframe.CheckLimits(inputs, a.limits); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commit(inputs)
	return nil
}

// InverseSolve solves for pose seeded from the current joint angles without moving the arm.
// armAngle is only honoured by the analytical solver.
func (a *Arm) InverseSolve(ctx context.Context, pose spatialmath.Pose, armAngle *float64) (*ik.Solution, error) {
	a.mu.RLock()
	seed := a.angles()
	a.mu.RUnlock()
	return a.solver.Solve(ctx, &ik.Request{
		Table:    a.model.Table,
		Limits:   a.limits,
		Seed:     seed,
		Goal:     pose,
		ArmAngle: armAngle,
	})
}

// MoveToPosition is a manual request to move the end effector to pose. Requests closer
// together than the configured interval fail with ErrRequestThrottled. The joints are
// commanded only when a solution is found.
func (a *Arm) MoveToPosition(ctx context.Context, pose spatialmath.Pose, armAngle *float64) (*ik.Solution, error) {
	if !a.limiter.Allow() {
		return nil, ErrRequestThrottled
	}
	sol, err := a.InverseSolve(ctx, pose, armAngle)
	if err != nil {
		return nil, err
	}
	if err := a.MoveToJointPositions(ctx, sol.Configuration); err != nil {
		return nil, errors.Wrap(err, "solution rejected")
	}
	a.logger.Debugw("moved to pose", "pose", pose, "generations", sol.Generations, "elapsed", sol.Elapsed)
	return sol, nil
}

// UpdateDriven steps every DrivenJoint toward its target and reports whether any of them is
// still further than tol from it.
func (a *Arm) UpdateDriven(tol float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	moving := false
	for _, j := range a.joints {
		driven, ok := j.(*DrivenJoint)
		if !ok {
			continue
		}
		driven.Step()
		if referenceframe.InputsL2Distance(
			[]referenceframe.Input{{Value: driven.Angle()}},
			[]referenceframe.Input{{Value: driven.Target()}},
		) > tol {
			moving = true
		}
	}
	return moving
}

// Observe records a measured angle for a PhysicalJoint.
func (a *Arm) Observe(joint int, angle float64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if joint < 0 || joint >= len(a.joints) {
		return errors.Errorf("joint %d does not exist, arm has %d joints", joint, len(a.joints))
	}
	physical, ok := a.joints[joint].(*PhysicalJoint)
	if !ok {
		return errors.Errorf("joint %d is a %T, only physical joints can be observed", joint, a.joints[joint])
	}
	physical.Observe(angle)
	return nil
}

// Snapshot returns the joint angles, their targets, the end pose and every frame origin, all
// read under one lock.
func (a *Arm) Snapshot(ctx context.Context) (*Snapshot, error) {
	a.mu.RLock()
	inputs, targets := a.angles(), a.targets()
	a.mu.RUnlock()

	table := a.model.Table.Copy()
	end, err := kinematics.ForwardInputs(table, inputs)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Joints:  inputs,
		Targets: targets,
		End:     end,
		Frames:  kinematics.JointFrames(table).Origins(),
		Taken:   time.Now(),
	}, nil
}

func (a *Arm) angles() []referenceframe.Input {
	inputs := make([]referenceframe.Input, len(a.joints))
	for i, j := range a.joints {
		inputs[i] = referenceframe.Input{Value: j.Angle()}
	}
	return inputs
}

func (a *Arm) targets() []referenceframe.Input {
	inputs := make([]referenceframe.Input, len(a.joints))
	for i, j := range a.joints {
		inputs[i] = referenceframe.Input{Value: j.Target()}
	}
	return inputs
}

// commit must be called with the write lock held.
func (a *Arm) commit(inputs []referenceframe.Input) {
	for i, in := range inputs {
		a.joints[i].SetTarget(in.Value)
	}
}
