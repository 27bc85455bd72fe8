package arm

import (
	"go.uber.org/atomic"

	"go.viam.com/armkin/utils"
)

// DefaultBlend is the fraction of the remaining distance a DrivenJoint covers per update.
const DefaultBlend = 0.2

// A Joint holds one actuated angle. The arm commands a target and reads back the angle the
// joint is actually at; how the two relate depends on the variant.
type Joint interface {
	// Angle is the current angle in radians.
	Angle() float64
	// Target is the last commanded angle.
	Target() float64
	SetTarget(angle float64)
}

// SimulatedJoint is at its target as soon as it is commanded.
type SimulatedJoint struct {
	angle float64
}

// NewSimulatedJoint returns a simulated joint resting at angle.
func NewSimulatedJoint(angle float64) *SimulatedJoint {
	return &SimulatedJoint{angle: angle}
}

// Angle returns the commanded angle.
func (j *SimulatedJoint) Angle() float64 { return j.angle }

// Target returns the commanded angle.
func (j *SimulatedJoint) Target() float64 { return j.angle }

// SetTarget moves the joint.
func (j *SimulatedJoint) SetTarget(angle float64) { j.angle = angle }

// DrivenJoint moves toward its target by an exponential moving average each time Step is
// called, taking the short way around the circle.
type DrivenJoint struct {
	angle  float64
	target float64
	blend  float64
}

// NewDrivenJoint returns a driven joint resting at angle. A blend outside (0, 1] is replaced
// by DefaultBlend.
func NewDrivenJoint(angle, blend float64) *DrivenJoint {
	if !(blend > 0 && blend <= 1) {
		blend = DefaultBlend
	}
	return &DrivenJoint{angle: angle, target: angle, blend: blend}
}

// Angle returns where the joint has got to.
func (j *DrivenJoint) Angle() float64 { return j.angle }

// Target returns the commanded angle.
func (j *DrivenJoint) Target() float64 { return j.target }

// SetTarget commands a new angle; the joint only moves on Step.
func (j *DrivenJoint) SetTarget(angle float64) { j.target = angle }

// Step blends the angle toward the target and returns the new angle.
func (j *DrivenJoint) Step() float64 {
	j.angle = utils.NormalizeAngle(j.angle + j.blend*utils.AngleDiff(j.angle, j.target))
	return j.angle
}

// PhysicalJoint reports angles measured on hardware. Targets are recorded for whoever drives
// the motor; Observe may be called from any goroutine.
type PhysicalJoint struct {
	measured *atomic.Float64
	target   float64
}

// NewPhysicalJoint returns a physical joint whose last measurement is angle.
func NewPhysicalJoint(angle float64) *PhysicalJoint {
	return &PhysicalJoint{measured: atomic.NewFloat64(angle), target: angle}
}

// Angle returns the last measurement.
func (j *PhysicalJoint) Angle() float64 { return j.measured.Load() }

// Target returns the commanded angle.
func (j *PhysicalJoint) Target() float64 { return j.target }

// SetTarget records the commanded angle.
func (j *PhysicalJoint) SetTarget(angle float64) { j.target = angle }

// Observe records a measured angle.
func (j *PhysicalJoint) Observe(angle float64) { j.measured.Store(angle) }
