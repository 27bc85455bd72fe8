package control

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/armkin/components/arm"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
)

// Target is what an animation wants the arm to do this tick: either reach a joint vector or
// reach a pose, optionally at a given arm angle.
type Target struct {
	Joints   []referenceframe.Input
	Pose     *spatialmath.Pose
	ArmAngle *float64
}

// JointTarget returns a Target for a joint vector.
func JointTarget(joints []referenceframe.Input) *Target {
	return &Target{Joints: joints}
}

// PoseTarget returns a Target for an end effector pose.
func PoseTarget(pose spatialmath.Pose, armAngle *float64) *Target {
	return &Target{Pose: &pose, ArmAngle: armAngle}
}

// Validate checks that exactly one of Joints and Pose is set.
func (t *Target) Validate() error {
	if (t.Joints == nil) == (t.Pose == nil) {
		return errors.New("target must set exactly one of joints and pose")
	}
	return nil
}

// Animation produces the next target from the time of the tick and the arm state read at its
// start. A nil target leaves the arm where it is.
type Animation interface {
	Next(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error)
}

// AnimationFunc adapts a function to an Animation.
type AnimationFunc func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error)

// Next calls f.
func (f AnimationFunc) Next(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
	return f(ctx, now, snap)
}

// Broadcaster publishes the arm state at the end of every tick.
type Broadcaster interface {
	Broadcast(ctx context.Context, snap *arm.Snapshot) error
}

// BroadcasterFunc adapts a function to a Broadcaster.
type BroadcasterFunc func(ctx context.Context, snap *arm.Snapshot) error

// Broadcast calls f.
func (f BroadcasterFunc) Broadcast(ctx context.Context, snap *arm.Snapshot) error {
	return f(ctx, snap)
}
