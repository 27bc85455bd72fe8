package ik

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"go.viam.com/armkin/interval"
	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
	"go.viam.com/armkin/utils"
)

// Below this, sin of a middle ZYZ angle is treated as zero and the outer two angles merge.
const wristSingularityThreshold = 1e-9

// srsAlphas is the alpha column of a spherical-revolute-spherical arm whose joints, at zero,
// rotate about z, y, z, -y, z, y, z.
var srsAlphas = [7]float64{0, -math.Pi / 2, math.Pi / 2, math.Pi / 2, -math.Pi / 2, -math.Pi / 2, math.Pi / 2}

// srsGeometry holds the link lengths of an SRS arm. The shoulder sits baseHeight above the
// base, the elbow upperArm from the shoulder, the wrist forearm from the elbow and the tool
// point hand from the wrist. toolTwist is the fixed rotation about the last axis contributed
// by trailing virtual rows.
type srsGeometry struct {
	baseHeight float64
	upperArm   float64
	forearm    float64
	hand       float64
	toolTwist  float64
}

func newSRSGeometry(table *kinematics.DHTable) (*srsGeometry, error) {
	actuated := table.ActuatedIndices()
	if len(actuated) != 7 {
		return nil, errors.Wrapf(ErrNotSRS, "%d actuated joints", len(actuated))
	}
	for k, i := range actuated {
		if i != k {
			return nil, errors.Wrap(ErrNotSRS, "virtual rows may only follow the last joint")
		}
	}
	const tol = 1e-9
	g := &srsGeometry{}
	for i := 0; i < table.Len(); i++ {
		d, a, alpha, theta := table.Params(i)
		if math.Abs(a) > tol {
			return nil, errors.Wrapf(ErrNotSRS, "row %d has a non-zero link offset", i)
		}
		if i >= 7 {
			if math.Abs(alpha) > tol {
				return nil, errors.Wrapf(ErrNotSRS, "virtual row %d is not aligned with the last joint", i)
			}
			g.hand += d
			g.toolTwist += theta
			continue
		}
		if math.Abs(alpha-srsAlphas[i]) > tol {
			return nil, errors.Wrapf(ErrNotSRS, "row %d has alpha %.4f", i, alpha)
		}
		switch i {
		case 0:
			g.baseHeight = d
		case 2:
			g.upperArm = d
		case 4:
			g.forearm = d
		case 6:
			g.hand += d
		default:
			if math.Abs(d) > tol {
				return nil, errors.Wrapf(ErrNotSRS, "row %d has a non-zero offset along its axis", i)
			}
		}
	}
	if !(g.upperArm > 0) || !(g.forearm > 0) {
		return nil, errors.Wrap(ErrNotSRS, "upper arm and forearm must have positive length")
	}
	return g, nil
}

// branch picks one of the eight closed form solutions by the signs of the shoulder, elbow and
// wrist pitch joints.
type branch struct {
	shoulder, elbow, wrist float64
}

func branchOf(q []float64) branch {
	sign := func(v float64) float64 {
		if v < 0 {
			return -1
		}
		return 1
	}
	return branch{shoulder: sign(q[1]), elbow: sign(q[3]), wrist: sign(q[5])}
}

// srsPose is everything about a goal that does not depend on the arm angle.
type srsPose struct {
	geom      *srsGeometry
	branch    branch
	rot       mgl64.Mat3 // goal orientation without the tool twist
	axis      mgl64.Vec3 // unit vector from shoulder to wrist
	elbow     float64
	reference mgl64.Mat3 // shoulder rotation at arm angle zero
	seed      []float64
}

// newSRSPose solves the position of the wrist and the elbow angle, and the shoulder rotation
// that puts the elbow in the reference plane.
func newSRSPose(g *srsGeometry, goal spatialmath.Pose, seed []float64) (*srsPose, error) {
	rot := goal.Orientation.Matrix().Mul3(mgl64.Rotate3DZ(-g.toolTwist))
	approach := rot.Col(2)
	wrist := spatialmath.R3ToVec3(goal.Point).Sub(approach.Mul(g.hand))
	sw := wrist.Sub(mgl64.Vec3{0, 0, g.baseHeight})
	dist := sw.Len()

	l1, l2 := g.upperArm, g.forearm
	cosElbow := (dist*dist - l1*l1 - l2*l2) / (2 * l1 * l2)
	if cosElbow > 1+1e-9 || cosElbow < -1-1e-9 {
		return nil, newNoSolutionError("wrist center out of reach", 0, nil)
	}
	if dist < 1e-9 {
		return nil, newNoSolutionError("wrist center coincides with the shoulder", 0, nil)
	}
	b := branchOf(seed)
	elbow := b.elbow * math.Acos(utils.Clamp(cosElbow, -1, 1))

	// Shoulder to wrist in the frame after the shoulder joints.
	s3, c3 := math.Sincos(elbow)
	vx, vz := -l2*s3, l1+l2*c3
	r := math.Hypot(sw[0], sw[1])
	yaw := 0.
	if r > 1e-9 {
		yaw = math.Atan2(sw[1], sw[0])
	}
	pitch := math.Atan2(r, sw[2]) - math.Atan2(vx, vz)
	reference := mgl64.Rotate3DZ(yaw).Mul3(mgl64.Rotate3DY(pitch))

	return &srsPose{
		geom:      g,
		branch:    b,
		rot:       rot,
		axis:      sw.Normalize(),
		elbow:     elbow,
		reference: reference,
		seed:      seed,
	}, nil
}

// anglesAt returns the seven joint angles placing the elbow at arm angle psi.
func (p *srsPose) anglesAt(psi float64) []float64 {
	shoulder := mgl64.HomogRotate3D(psi, p.axis).Mat3().Mul3(p.reference)
	q := make([]float64, 7)
	q[0], q[1], q[2] = zyzAngles(shoulder, p.branch.shoulder, p.seed[0])
	q[3] = p.elbow

	wrist := mgl64.Rotate3DY(p.elbow).Mul3(shoulder.Transpose()).Mul3(p.rot)
	q[4], q[5], q[6] = zyzAngles(wrist, p.branch.wrist, p.seed[4])
	for i := range q {
		q[i] = utils.NormalizeAngle(q[i])
	}
	return q
}

// armAngleOf is the arm angle of a configuration on the same branch: the signed rotation
// about the shoulder-wrist axis from the reference elbow position to the actual one.
func (p *srsPose) armAngleOf(q []float64) float64 {
	shoulder := mgl64.Rotate3DZ(q[0]).Mul3(mgl64.Rotate3DY(q[1])).Mul3(mgl64.Rotate3DZ(q[2]))
	actual := perpendicular(shoulder.Col(2), p.axis)
	ref := perpendicular(p.reference.Col(2), p.axis)
	if actual.Len() < 1e-12 || ref.Len() < 1e-12 {
		return 0
	}
	return math.Atan2(p.axis.Dot(ref.Cross(actual)), ref.Dot(actual))
}

func perpendicular(v, axis mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(axis.Mul(v.Dot(axis)))
}

// zyzAngles decomposes m = Rz(a)·Ry(b)·Rz(c) choosing the sign of sin(b). When sin(b) is zero
// only a+c (or c-a) is determined and a keeps the hint.
func zyzAngles(m mgl64.Mat3, sign, hint float64) (a, b, c float64) {
	sb := math.Hypot(m.At(0, 2), m.At(1, 2))
	if sb < wristSingularityThreshold {
		if m.At(2, 2) > 0 {
			return hint, 0, math.Atan2(m.At(1, 0), m.At(0, 0)) - hint
		}
		return hint, math.Pi, math.Atan2(m.At(1, 0), -m.At(0, 0)) + hint
	}
	a = math.Atan2(sign*m.At(1, 2), sign*m.At(0, 2))
	b = math.Atan2(sign*sb, m.At(2, 2))
	c = math.Atan2(sign*m.At(2, 1), -sign*m.At(2, 0))
	return a, b, c
}

// AnalyticalIK solves spherical-revolute-spherical 7-DOF arms in closed form. The redundant
// degree of freedom is the arm angle, the rotation of the elbow about the shoulder-wrist axis.
// It is taken from the request when admissible and otherwise chosen to stay clear of the
// joint limits.
type AnalyticalIK struct {
	opts   Options
	logger logging.Logger
}

// NewAnalyticalIK creates an AnalyticalIK.
func NewAnalyticalIK(logger logging.Logger, opts Options) (*AnalyticalIK, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &AnalyticalIK{opts: opts, logger: logger}, nil
}

// Solve returns the configuration on the seed's branch at the chosen arm angle.
func (ik *AnalyticalIK) Solve(ctx context.Context, req *Request) (*Solution, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, newNoSolutionError("solve interrupted", 0, err)
	}
	prob, err := newProblem(req)
	if err != nil {
		return nil, err
	}
	geom, err := newSRSGeometry(prob.table)
	if err != nil {
		return nil, err
	}
	pose, err := newSRSPose(geom, prob.goal, prob.seed)
	if err != nil {
		return nil, err
	}

	limits := prob.actuatedLimits()
	sweep := ik.sweep(pose)
	psi, err := sweep.choose(pose, limits, req.ArmAngle)
	if err != nil {
		return nil, err
	}

	q := pose.anglesAt(psi)
	inputs := referenceframe.FloatsToInputs(q)
	if err := referenceframe.CheckLimits(inputs, limits); err != nil {
		return nil, newNoSolutionError("arm angle solution violates joint limits", 0, err)
	}
	reached, err := kinematics.Forward(prob.table, q)
	if err != nil {
		return nil, err
	}
	delta := spatialmath.PoseError(reached, prob.goal)
	if !WithinTolerance(delta, ik.opts.PositionTolerance, ik.opts.OrientationTolerance) {
		return nil, newNoSolutionError("closed form solution misses the goal", 0, nil)
	}
	sol := &Solution{
		Configuration: inputs,
		Pose:          reached,
		Score:         NewFitnessMetric(prob.goal, ik.opts.PositionTolerance, ik.opts.OrientationTolerance)(reached),
		ArmAngle:      psi,
		Elapsed:       time.Since(start),
	}
	ik.logger.Debugw("solved", "arm_angle", psi, "elapsed", sol.Elapsed)
	return sol, nil
}

// ArmAngleRange returns the arm angles at which the goal can be reached within the joint limits,
// on the branch of the request's seed.
func (ik *AnalyticalIK) ArmAngleRange(req *Request) (interval.Set, error) {
	prob, err := newProblem(req)
	if err != nil {
		return interval.Empty(), err
	}
	geom, err := newSRSGeometry(prob.table)
	if err != nil {
		return interval.Empty(), err
	}
	pose, err := newSRSPose(geom, prob.goal, prob.seed)
	if err != nil {
		return interval.Empty(), err
	}
	return ik.sweep(pose).admissible(prob.actuatedLimits()), nil
}

// ArmAngle returns the arm angle of a configuration, measured against the reference plane of
// the pose that configuration reaches.
func (ik *AnalyticalIK) ArmAngle(table *kinematics.DHTable, q []referenceframe.Input) (float64, error) {
	prob, err := newProblem(&Request{Table: table, Seed: q})
	if err != nil {
		return 0, err
	}
	geom, err := newSRSGeometry(prob.table)
	if err != nil {
		return 0, err
	}
	reached, err := kinematics.Forward(prob.table, prob.seed)
	if err != nil {
		return 0, err
	}
	pose, err := newSRSPose(geom, reached, prob.seed)
	if err != nil {
		return 0, err
	}
	return pose.armAngleOf(prob.seed), nil
}
